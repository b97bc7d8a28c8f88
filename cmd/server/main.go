// Command server starts the sitebridge automation API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"sitebridge/internal/api"
	"sitebridge/internal/media"
	"sitebridge/internal/observability/logging"
	"sitebridge/internal/observability/metrics"
	"sitebridge/internal/secrets"
	"sitebridge/internal/server"
	"sitebridge/internal/serverutil"
	"sitebridge/internal/storage"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	mode := flag.String("mode", "", "server runtime mode (development or production)")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log output format (json or text)")

	dataPath := flag.String("data", "", "path to JSON datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime for a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time for a pooled Postgres connection")
	postgresAcquireTimeout := flag.Duration("postgres-acquire-timeout", 0, "timeout when acquiring a Postgres connection from the pool")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")

	secretStoreDriver := flag.String("secret-store", "", "shared secret store (env, file, or static)")
	secretName := flag.String("secret-name", "", "name of the shared secret presented by callers")
	sharedSecret := flag.String("shared-secret", "", "static shared secret value (development only)")
	secretDir := flag.String("secret-dir", "", "directory holding secret files for the file store")
	secretEnvPrefix := flag.String("secret-env-prefix", "", "environment variable prefix for the env secret store")

	mediaStoreDriver := flag.String("media-store", "", "media store driver (disk or s3)")
	mediaDir := flag.String("media-dir", "", "directory for disk media storage")
	mediaBaseURL := flag.String("media-base-url", "", "public base URL for disk media storage")
	objectEndpoint := flag.String("object-endpoint", "", "object storage endpoint (e.g. http://127.0.0.1:9000)")
	objectRegion := flag.String("object-region", "", "object storage region")
	objectAccessKey := flag.String("object-access-key", "", "object storage access key")
	objectSecretKey := flag.String("object-secret-key", "", "object storage secret key")
	objectBucket := flag.String("object-bucket", "", "object storage bucket name")
	objectUseSSL := flag.Bool("object-use-ssl", false, "enable TLS for object storage requests")
	objectPublicEndpoint := flag.String("object-public-endpoint", "", "public endpoint used for stored file URLs")
	fetchTimeout := flag.Duration("fetch-timeout", 0, "timeout for fetching a remote image")

	importWorkers := flag.Int("import-workers", 0, "number of concurrent image import workers")
	importQueueSize := flag.Int("import-queue-size", 0, "pending image import queue capacity")
	importTimeout := flag.Duration("import-timeout", 0, "timeout for a single image import")
	contextMaxAge := flag.Duration("context-max-age", 0, "age after which unfinished import contexts are reaped")
	contextReapInterval := flag.Duration("context-reap-interval", 0, "interval between import context reap passes")

	contextStoreDriver := flag.String("context-store", "", "import context store driver (memory or redis)")
	contextRedisAddr := flag.String("context-redis-addr", "", "Redis address for the import context store")
	contextRedisAddrs := flag.String("context-redis-addrs", "", "comma separated Redis addresses for the import context store")
	contextRedisUsername := flag.String("context-redis-username", "", "Redis username for the import context store")
	contextRedisPassword := flag.String("context-redis-password", "", "Redis password for the import context store")
	contextRedisPrefix := flag.String("context-redis-prefix", "", "Redis key prefix for import contexts")
	contextRedisMasterName := flag.String("context-redis-sentinel-master", "", "Redis sentinel master name for the import context store")
	contextRedisPoolSize := flag.Int("context-redis-pool-size", 0, "maximum Redis connections for the import context store")
	contextRedisTLSCA := flag.String("context-redis-tls-ca", "", "path to Redis TLS CA certificate for the import context store")
	contextRedisTLSCert := flag.String("context-redis-tls-cert", "", "path to Redis TLS client certificate for the import context store")
	contextRedisTLSKey := flag.String("context-redis-tls-key", "", "path to Redis TLS client key for the import context store")
	contextRedisTLSServerName := flag.String("context-redis-tls-server-name", "", "override Redis TLS server name for the import context store")
	contextRedisTLSSkipVerify := flag.Bool("context-redis-tls-skip-verify", false, "skip Redis TLS verification for the import context store")

	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	clientLimit := flag.Int("rate-client-limit", 0, "maximum write requests per window for a single client")
	clientWindow := flag.Duration("rate-client-window", 0, "window for counting write requests per client")
	trustForwarded := flag.Bool("rate-trust-forwarded-headers", false, "trust proxy-provided client IP headers")
	trustedProxies := flag.String("rate-trusted-proxies", "", "comma separated CIDR blocks or IPs of trusted proxies")
	rateRedisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed request throttling")
	rateRedisPassword := flag.String("rate-redis-password", "", "Redis password for distributed request throttling")
	rateRedisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for rate limiter Redis operations")

	corsOrigins := flag.String("cors-allowed-origins", "", "comma separated origins allowed to call the API from a browser")
	flag.Parse()

	logger := logging.New(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("SITEBRIDGE_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("SITEBRIDGE_LOG_FORMAT")),
	})
	auditLogger := logging.WithComponent(logger, "audit")
	recorder := metrics.Default()

	serverMode := modeValue(*mode, os.Getenv("SITEBRIDGE_MODE"))
	listenAddr := resolveListenAddr(*addr, serverMode, os.Getenv("SITEBRIDGE_ADDR"))

	postgresDefaultDSN := resolvePostgresDSN(*postgresDSN)
	driver, err := resolveStorageDriver(*storageDriver, os.Getenv("SITEBRIDGE_STORAGE_DRIVER"), postgresDefaultDSN)
	if err != nil {
		logger.Error("failed to resolve storage driver", "error", err)
		os.Exit(1)
	}
	if serverMode == "production" {
		if err := validateProductionDatastore(driver, postgresDefaultDSN); err != nil {
			logger.Error("production datastore validation failed", "error", err)
			os.Exit(1)
		}
	}

	var store storage.Repository
	switch driver {
	case "json":
		dataFile := resolveDataPath(*dataPath, os.Getenv("SITEBRIDGE_DATA"))
		store, err = storage.NewStorage(dataFile)
	case "postgres":
		if postgresDefaultDSN == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		var pgOptions []storage.PostgresOption
		maxConns := resolveInt(*postgresMaxConns, "SITEBRIDGE_POSTGRES_MAX_CONNS")
		minConns := resolveInt(*postgresMinConns, "SITEBRIDGE_POSTGRES_MIN_CONNS")
		if maxConns > 0 || minConns > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresPoolLimits(int32(maxConns), int32(minConns)))
		}
		maxLifetime := resolveDuration(*postgresMaxConnLifetime, "SITEBRIDGE_POSTGRES_MAX_CONN_LIFETIME", 0)
		maxIdle := resolveDuration(*postgresMaxConnIdle, "SITEBRIDGE_POSTGRES_MAX_CONN_IDLE", 0)
		if maxLifetime > 0 || maxIdle > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresConnLifetimes(maxLifetime, maxIdle))
		}
		if acquireTimeout := resolveDuration(*postgresAcquireTimeout, "SITEBRIDGE_POSTGRES_ACQUIRE_TIMEOUT", 0); acquireTimeout > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresAcquireTimeout(acquireTimeout))
		}
		if appName := firstNonEmpty(*postgresAppName, os.Getenv("SITEBRIDGE_POSTGRES_APP_NAME")); appName != "" {
			pgOptions = append(pgOptions, storage.WithPostgresApplicationName(appName))
		}
		store, err = storage.NewPostgresRepository(postgresDefaultDSN, pgOptions...)
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	secretStore, err := resolveSecretStore(secretStoreSettings{
		Driver:    firstNonEmpty(*secretStoreDriver, os.Getenv("SITEBRIDGE_SECRET_STORE")),
		Static:    firstNonEmpty(*sharedSecret, os.Getenv("SITEBRIDGE_SHARED_SECRET")),
		Dir:       firstNonEmpty(*secretDir, os.Getenv("SITEBRIDGE_SECRET_DIR")),
		EnvPrefix: firstNonEmpty(*secretEnvPrefix, os.Getenv("SITEBRIDGE_SECRET_ENV_PREFIX")),
		Name:      resolveSecretName(*secretName, os.Getenv("SITEBRIDGE_SECRET_NAME")),
	})
	if err != nil {
		logger.Error("failed to configure secret store", "error", err)
		os.Exit(1)
	}
	verifier := secrets.SharedSecretVerifier{
		Store:      secretStore,
		SecretName: resolveSecretName(*secretName, os.Getenv("SITEBRIDGE_SECRET_NAME")),
		Logger:     logging.WithComponent(logger, "secrets"),
	}

	blobs, err := resolveBlobStore(blobStoreSettings{
		Driver:  firstNonEmpty(*mediaStoreDriver, os.Getenv("SITEBRIDGE_MEDIA_STORE")),
		Dir:     firstNonEmpty(*mediaDir, os.Getenv("SITEBRIDGE_MEDIA_DIR")),
		BaseURL: firstNonEmpty(*mediaBaseURL, os.Getenv("SITEBRIDGE_MEDIA_BASE_URL")),
		S3: media.S3Config{
			Endpoint:       firstNonEmpty(*objectEndpoint, os.Getenv("SITEBRIDGE_OBJECT_ENDPOINT")),
			Region:         firstNonEmpty(*objectRegion, os.Getenv("SITEBRIDGE_OBJECT_REGION")),
			AccessKey:      firstNonEmpty(*objectAccessKey, os.Getenv("SITEBRIDGE_OBJECT_ACCESS_KEY")),
			SecretKey:      firstNonEmpty(*objectSecretKey, os.Getenv("SITEBRIDGE_OBJECT_SECRET_KEY")),
			Bucket:         firstNonEmpty(*objectBucket, os.Getenv("SITEBRIDGE_OBJECT_BUCKET")),
			UseSSL:         resolveBool(*objectUseSSL, "SITEBRIDGE_OBJECT_USE_SSL"),
			PublicEndpoint: firstNonEmpty(*objectPublicEndpoint, os.Getenv("SITEBRIDGE_OBJECT_PUBLIC_ENDPOINT")),
		},
	})
	if err != nil {
		logger.Error("failed to configure media store", "error", err)
		os.Exit(1)
	}

	importer := &media.Importer{
		Fetcher: media.NewHTTPFetcher(resolveDuration(*fetchTimeout, "SITEBRIDGE_FETCH_TIMEOUT", 0)),
		Blobs:   blobs,
		Assets:  store,
		Logger:  logging.WithComponent(logger, "media"),
	}

	contexts, contextCloser, err := resolveContextStore(contextStoreSettings{
		Driver: firstNonEmpty(*contextStoreDriver, os.Getenv("SITEBRIDGE_CONTEXT_STORE")),
		Redis: api.RedisContextStoreConfig{
			Addr:       firstNonEmpty(*contextRedisAddr, os.Getenv("SITEBRIDGE_CONTEXT_REDIS_ADDR")),
			Addrs:      splitAndTrim(firstNonEmpty(*contextRedisAddrs, os.Getenv("SITEBRIDGE_CONTEXT_REDIS_ADDRS"))),
			Username:   firstNonEmpty(*contextRedisUsername, os.Getenv("SITEBRIDGE_CONTEXT_REDIS_USERNAME")),
			Password:   firstNonEmpty(*contextRedisPassword, os.Getenv("SITEBRIDGE_CONTEXT_REDIS_PASSWORD")),
			KeyPrefix:  firstNonEmpty(*contextRedisPrefix, os.Getenv("SITEBRIDGE_CONTEXT_REDIS_PREFIX")),
			MasterName: firstNonEmpty(*contextRedisMasterName, os.Getenv("SITEBRIDGE_CONTEXT_REDIS_SENTINEL_MASTER")),
			PoolSize:   resolveInt(*contextRedisPoolSize, "SITEBRIDGE_CONTEXT_REDIS_POOL_SIZE"),
			TLS: api.RedisTLSConfig{
				CAFile:             firstNonEmpty(*contextRedisTLSCA, os.Getenv("SITEBRIDGE_CONTEXT_REDIS_TLS_CA")),
				CertFile:           firstNonEmpty(*contextRedisTLSCert, os.Getenv("SITEBRIDGE_CONTEXT_REDIS_TLS_CERT")),
				KeyFile:            firstNonEmpty(*contextRedisTLSKey, os.Getenv("SITEBRIDGE_CONTEXT_REDIS_TLS_KEY")),
				ServerName:         firstNonEmpty(*contextRedisTLSServerName, os.Getenv("SITEBRIDGE_CONTEXT_REDIS_TLS_SERVER_NAME")),
				InsecureSkipVerify: resolveBool(*contextRedisTLSSkipVerify, "SITEBRIDGE_CONTEXT_REDIS_TLS_SKIP_VERIFY"),
			},
		},
	})
	if err != nil {
		logger.Error("failed to configure import context store", "error", err)
		os.Exit(1)
	}

	processor := api.NewImportProcessor(api.ImportProcessorConfig{
		Store:     store,
		Importer:  importer,
		Contexts:  contexts,
		Workers:   resolveInt(*importWorkers, "SITEBRIDGE_IMPORT_WORKERS"),
		QueueSize: resolveInt(*importQueueSize, "SITEBRIDGE_IMPORT_QUEUE_SIZE"),
		Timeout:   resolveDuration(*importTimeout, "SITEBRIDGE_IMPORT_TIMEOUT", 0),
		Logger:    logging.WithComponent(logger, "imports"),
		Metrics:   recorder,
	})
	processor.Start()

	handler := api.NewHandler(store, importer, processor)
	handler.Logger = logging.WithComponent(logger, "api")
	handler.Metrics = recorder

	rateCfg := server.RateLimitConfig{
		GlobalRPS:             resolveFloat(*globalRPS, "SITEBRIDGE_RATE_GLOBAL_RPS"),
		GlobalBurst:           resolveInt(*globalBurst, "SITEBRIDGE_RATE_GLOBAL_BURST"),
		PerClientLimit:        resolveInt(*clientLimit, "SITEBRIDGE_RATE_CLIENT_LIMIT"),
		PerClientWindow:       resolveDuration(*clientWindow, "SITEBRIDGE_RATE_CLIENT_WINDOW", time.Minute),
		TrustForwardedHeaders: resolveBool(*trustForwarded, "SITEBRIDGE_RATE_TRUST_FORWARDED_HEADERS"),
		TrustedProxies:        splitAndTrim(firstNonEmpty(*trustedProxies, os.Getenv("SITEBRIDGE_RATE_TRUSTED_PROXIES"))),
		RedisAddr:             firstNonEmpty(*rateRedisAddr, os.Getenv("SITEBRIDGE_RATE_REDIS_ADDR")),
		RedisPassword:         firstNonEmpty(*rateRedisPassword, os.Getenv("SITEBRIDGE_RATE_REDIS_PASSWORD")),
		RedisTimeout:          resolveDuration(*rateRedisTimeout, "SITEBRIDGE_RATE_REDIS_TIMEOUT", 2*time.Second),
	}

	tlsCfg := server.TLSConfig{
		CertFile: firstNonEmpty(*tlsCert, os.Getenv("SITEBRIDGE_TLS_CERT")),
		KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("SITEBRIDGE_TLS_KEY")),
	}

	srv, err := server.New(handler, server.Config{
		Addr:        listenAddr,
		TLS:         tlsCfg,
		RateLimit:   rateCfg,
		CORS:        server.CORSConfig{AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("SITEBRIDGE_CORS_ALLOWED_ORIGINS")))},
		Verifier:    verifier,
		Logger:      logger,
		AuditLogger: auditLogger,
		Metrics:     recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("sitebridge API listening", "addr", listenAddr, "mode", serverMode)
		if tlsCfg.CertFile != "" && tlsCfg.KeyFile != "" {
			logger.Info("TLS enabled", "cert_file", tlsCfg.CertFile)
		}
		logger.Info("metrics endpoint available", "path", "/metrics")
		return serverutil.Run(groupCtx, serverutil.Config{
			Server: srv.HTTPServer(),
			TLS: serverutil.TLSConfig{
				CertFile: tlsCfg.CertFile,
				KeyFile:  tlsCfg.KeyFile,
			},
		})
	})
	group.Go(func() error {
		runContextReaper(groupCtx, logging.WithComponent(logger, "context-reaper"), contexts,
			resolveDuration(*contextMaxAge, "SITEBRIDGE_CONTEXT_MAX_AGE", 24*time.Hour),
			resolveDuration(*contextReapInterval, "SITEBRIDGE_CONTEXT_REAP_INTERVAL", 15*time.Minute))
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := processor.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to stop import processor", "error", err)
	}
	if contextCloser != nil {
		if err := contextCloser(); err != nil {
			logger.Warn("failed to close import context store", "error", err)
		}
	}
	if closer, ok := store.(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(shutdownCtx); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	} else if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	}

	logger.Info("server stopped")
}

const defaultSecretName = "velo-secret"

type secretStoreSettings struct {
	Driver    string
	Static    string
	Dir       string
	EnvPrefix string
	Name      string
}

func resolveSecretStore(settings secretStoreSettings) (secrets.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(settings.Driver))
	if driver == "" {
		switch {
		case settings.Static != "":
			driver = "static"
		case settings.Dir != "":
			driver = "file"
		default:
			driver = "env"
		}
	}
	switch driver {
	case "static":
		if settings.Static == "" {
			return nil, fmt.Errorf("static secret store selected without a shared secret")
		}
		return secrets.StaticStore{settings.Name: settings.Static}, nil
	case "file":
		if settings.Dir == "" {
			return nil, fmt.Errorf("file secret store selected without a directory")
		}
		return &secrets.FileStore{Dir: settings.Dir}, nil
	case "env":
		prefix := settings.EnvPrefix
		if prefix == "" {
			prefix = "SITEBRIDGE_SECRET_"
		}
		return secrets.EnvStore{Prefix: prefix}, nil
	default:
		return nil, fmt.Errorf("unsupported secret store driver %q", driver)
	}
}

func resolveSecretName(flagValue, envValue string) string {
	if name := strings.TrimSpace(flagValue); name != "" {
		return name
	}
	if name := strings.TrimSpace(envValue); name != "" {
		return name
	}
	return defaultSecretName
}

type blobStoreSettings struct {
	Driver  string
	Dir     string
	BaseURL string
	S3      media.S3Config
}

func resolveBlobStore(settings blobStoreSettings) (media.BlobStore, error) {
	driver := strings.ToLower(strings.TrimSpace(settings.Driver))
	if driver == "" {
		if settings.S3.Endpoint != "" || settings.S3.Bucket != "" {
			driver = "s3"
		} else {
			driver = "disk"
		}
	}
	switch driver {
	case "s3":
		if settings.S3.Endpoint == "" || settings.S3.Bucket == "" {
			return nil, fmt.Errorf("s3 media store requires an endpoint and bucket")
		}
		store, err := media.NewS3Store(settings.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "disk":
		dir := settings.Dir
		if dir == "" {
			dir = "data/media"
		}
		baseURL := settings.BaseURL
		if baseURL == "" {
			baseURL = "/media"
		}
		return &media.DiskStore{Dir: dir, BaseURL: baseURL}, nil
	default:
		return nil, fmt.Errorf("unsupported media store driver %q", driver)
	}
}

type contextStoreSettings struct {
	Driver string
	Redis  api.RedisContextStoreConfig
}

func resolveContextStore(settings contextStoreSettings) (api.ContextStore, func() error, error) {
	driver := strings.ToLower(strings.TrimSpace(settings.Driver))
	if driver == "" {
		if settings.Redis.Addr != "" || len(settings.Redis.Addrs) > 0 {
			driver = "redis"
		} else {
			driver = "memory"
		}
	}
	switch driver {
	case "redis":
		store, err := api.NewRedisContextStore(settings.Redis)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "memory":
		return api.NewMemoryContextStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported context store driver %q", driver)
	}
}

func resolveListenAddr(flagValue, mode, envAddr string) string {
	listenAddr := strings.TrimSpace(flagValue)
	if listenAddr == "" {
		listenAddr = strings.TrimSpace(envAddr)
	}
	if listenAddr == "" {
		listenAddr = defaultListenForMode(mode)
	}
	return listenAddr
}

func modeValue(flagMode, envMode string) string {
	mode := strings.ToLower(strings.TrimSpace(flagMode))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(envMode))
	}
	if mode == "" {
		mode = "development"
	}
	return mode
}

func defaultListenForMode(mode string) string {
	if mode == "production" {
		return ":80"
	}
	return ":8080"
}

func resolveStorageDriver(flagValue, envValue, postgresDSN string) (string, error) {
	if driver := strings.ToLower(strings.TrimSpace(flagValue)); driver != "" {
		return driver, nil
	}
	if driver := strings.ToLower(strings.TrimSpace(envValue)); driver != "" {
		return driver, nil
	}
	if strings.TrimSpace(postgresDSN) != "" {
		return "postgres", nil
	}
	return "json", nil
}

func validateProductionDatastore(driver, resolvedPostgresDSN string) error {
	if driver != "postgres" {
		return fmt.Errorf("production mode requires the postgres datastore driver, got %q", driver)
	}
	if strings.TrimSpace(resolvedPostgresDSN) == "" {
		return fmt.Errorf("postgres storage selected without DSN")
	}
	return nil
}

func resolveDataPath(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := strings.TrimSpace(envValue); env != "" {
		return env
	}
	return "data/store.json"
}

func resolvePostgresDSN(flagValue string) string {
	return strings.TrimSpace(firstNonEmpty(flagValue, os.Getenv("SITEBRIDGE_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	if fallback > 0 {
		return fallback
	}
	return 0
}

func resolveBool(flagValue bool, envKey string) bool {
	if flagValue {
		return true
	}
	if env, ok := os.LookupEnv(envKey); ok {
		if value, err := strconv.ParseBool(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return false
}
