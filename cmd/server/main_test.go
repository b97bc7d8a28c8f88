package main

import (
	"testing"
	"time"

	"sitebridge/internal/media"
	"sitebridge/internal/secrets"
)

func TestResolveStorageDriverPrefersFlag(t *testing.T) {
	driver, err := resolveStorageDriver("json", "postgres", "postgres://db/app")
	if err != nil {
		t.Fatalf("resolveStorageDriver: %v", err)
	}
	if driver != "json" {
		t.Fatalf("driver = %q, want json", driver)
	}
}

func TestResolveStorageDriverFallsBackToEnv(t *testing.T) {
	driver, err := resolveStorageDriver("", "Postgres", "")
	if err != nil {
		t.Fatalf("resolveStorageDriver: %v", err)
	}
	if driver != "postgres" {
		t.Fatalf("driver = %q, want postgres", driver)
	}
}

func TestResolveStorageDriverInfersPostgresFromDSN(t *testing.T) {
	driver, err := resolveStorageDriver("", "", "postgres://db/app")
	if err != nil {
		t.Fatalf("resolveStorageDriver: %v", err)
	}
	if driver != "postgres" {
		t.Fatalf("driver = %q, want postgres", driver)
	}
}

func TestResolveStorageDriverDefaultsToJSON(t *testing.T) {
	driver, err := resolveStorageDriver("", "", "")
	if err != nil {
		t.Fatalf("resolveStorageDriver: %v", err)
	}
	if driver != "json" {
		t.Fatalf("driver = %q, want json", driver)
	}
}

func TestValidateProductionDatastoreRejectsJSON(t *testing.T) {
	if err := validateProductionDatastore("json", ""); err == nil {
		t.Fatal("expected error for json driver in production")
	}
}

func TestValidateProductionDatastoreRequiresDSN(t *testing.T) {
	if err := validateProductionDatastore("postgres", ""); err == nil {
		t.Fatal("expected error when postgres DSN is missing")
	}
}

func TestValidateProductionDatastoreAcceptsPostgres(t *testing.T) {
	if err := validateProductionDatastore("postgres", "postgres://db/app"); err != nil {
		t.Fatalf("validateProductionDatastore: %v", err)
	}
}

func TestResolvePostgresDSNPriority(t *testing.T) {
	t.Setenv("SITEBRIDGE_POSTGRES_DSN", "postgres://env/app")
	t.Setenv("DATABASE_URL", "postgres://database-url/app")

	if dsn := resolvePostgresDSN("postgres://flag/app"); dsn != "postgres://flag/app" {
		t.Fatalf("dsn = %q, want flag value", dsn)
	}
	if dsn := resolvePostgresDSN(""); dsn != "postgres://env/app" {
		t.Fatalf("dsn = %q, want SITEBRIDGE_POSTGRES_DSN value", dsn)
	}

	t.Setenv("SITEBRIDGE_POSTGRES_DSN", "")
	if dsn := resolvePostgresDSN(""); dsn != "postgres://database-url/app" {
		t.Fatalf("dsn = %q, want DATABASE_URL value", dsn)
	}
}

func TestResolveListenAddrDefaultsByMode(t *testing.T) {
	if addr := resolveListenAddr("", "development", ""); addr != ":8080" {
		t.Fatalf("addr = %q, want :8080", addr)
	}
	if addr := resolveListenAddr("", "production", ""); addr != ":80" {
		t.Fatalf("addr = %q, want :80", addr)
	}
	if addr := resolveListenAddr(":9090", "production", ":7070"); addr != ":9090" {
		t.Fatalf("addr = %q, want flag value", addr)
	}
	if addr := resolveListenAddr("", "production", ":7070"); addr != ":7070" {
		t.Fatalf("addr = %q, want env value", addr)
	}
}

func TestModeValueNormalizes(t *testing.T) {
	if mode := modeValue(" Production ", ""); mode != "production" {
		t.Fatalf("mode = %q, want production", mode)
	}
	if mode := modeValue("", "development"); mode != "development" {
		t.Fatalf("mode = %q, want development", mode)
	}
	if mode := modeValue("", ""); mode != "development" {
		t.Fatalf("mode = %q, want development default", mode)
	}
}

func TestResolveSecretStoreDefaultsToEnv(t *testing.T) {
	store, err := resolveSecretStore(secretStoreSettings{Name: defaultSecretName})
	if err != nil {
		t.Fatalf("resolveSecretStore: %v", err)
	}
	env, ok := store.(secrets.EnvStore)
	if !ok {
		t.Fatalf("store = %T, want secrets.EnvStore", store)
	}
	if env.Prefix != "SITEBRIDGE_SECRET_" {
		t.Fatalf("prefix = %q, want SITEBRIDGE_SECRET_", env.Prefix)
	}
}

func TestResolveSecretStoreInfersStatic(t *testing.T) {
	store, err := resolveSecretStore(secretStoreSettings{Static: "hunter2", Name: defaultSecretName})
	if err != nil {
		t.Fatalf("resolveSecretStore: %v", err)
	}
	static, ok := store.(secrets.StaticStore)
	if !ok {
		t.Fatalf("store = %T, want secrets.StaticStore", store)
	}
	value, err := static.Get(defaultSecretName)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if value != "hunter2" {
		t.Fatalf("secret = %q, want hunter2", value)
	}
}

func TestResolveSecretStoreRejectsEmptyStatic(t *testing.T) {
	if _, err := resolveSecretStore(secretStoreSettings{Driver: "static", Name: defaultSecretName}); err == nil {
		t.Fatal("expected error for static store without secret")
	}
}

func TestResolveSecretStoreRejectsUnknownDriver(t *testing.T) {
	if _, err := resolveSecretStore(secretStoreSettings{Driver: "vault", Name: defaultSecretName}); err == nil {
		t.Fatal("expected error for unknown secret store driver")
	}
}

func TestResolveSecretName(t *testing.T) {
	if name := resolveSecretName("", ""); name != defaultSecretName {
		t.Fatalf("name = %q, want %q", name, defaultSecretName)
	}
	if name := resolveSecretName("from-flag", "from-env"); name != "from-flag" {
		t.Fatalf("name = %q, want from-flag", name)
	}
	if name := resolveSecretName("", "from-env"); name != "from-env" {
		t.Fatalf("name = %q, want from-env", name)
	}
}

func TestResolveBlobStoreDefaultsToDisk(t *testing.T) {
	store, err := resolveBlobStore(blobStoreSettings{})
	if err != nil {
		t.Fatalf("resolveBlobStore: %v", err)
	}
	disk, ok := store.(*media.DiskStore)
	if !ok {
		t.Fatalf("store = %T, want *media.DiskStore", store)
	}
	if disk.Dir != "data/media" {
		t.Fatalf("dir = %q, want data/media", disk.Dir)
	}
	if disk.BaseURL != "/media" {
		t.Fatalf("base url = %q, want /media", disk.BaseURL)
	}
}

func TestResolveBlobStoreInfersS3FromEndpoint(t *testing.T) {
	_, err := resolveBlobStore(blobStoreSettings{S3: media.S3Config{Endpoint: "http://127.0.0.1:9000"}})
	if err == nil {
		t.Fatal("expected error when s3 is selected without a bucket")
	}
}

func TestResolveContextStoreDefaultsToMemory(t *testing.T) {
	store, closer, err := resolveContextStore(contextStoreSettings{})
	if err != nil {
		t.Fatalf("resolveContextStore: %v", err)
	}
	if closer != nil {
		t.Fatal("memory context store should not have a closer")
	}
	if store == nil {
		t.Fatal("expected a context store")
	}
}

func TestResolveContextStoreRejectsUnknownDriver(t *testing.T) {
	if _, _, err := resolveContextStore(contextStoreSettings{Driver: "dynamo"}); err == nil {
		t.Fatal("expected error for unknown context store driver")
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(" 10.0.0.0/8 , , 192.168.1.1 ")
	if len(got) != 2 || got[0] != "10.0.0.0/8" || got[1] != "192.168.1.1" {
		t.Fatalf("splitAndTrim = %v", got)
	}
	if got := splitAndTrim("  "); got != nil {
		t.Fatalf("splitAndTrim of blanks = %v, want nil", got)
	}
}

func TestResolveDurationFallback(t *testing.T) {
	if d := resolveDuration(0, "SITEBRIDGE_TEST_UNSET_DURATION", 5*time.Second); d != 5*time.Second {
		t.Fatalf("duration = %v, want 5s", d)
	}
	t.Setenv("SITEBRIDGE_TEST_DURATION", "90s")
	if d := resolveDuration(0, "SITEBRIDGE_TEST_DURATION", time.Second); d != 90*time.Second {
		t.Fatalf("duration = %v, want 90s", d)
	}
	if d := resolveDuration(2*time.Second, "SITEBRIDGE_TEST_DURATION", time.Second); d != 2*time.Second {
		t.Fatalf("duration = %v, want flag value", d)
	}
}

func TestResolveBoolEnvFallback(t *testing.T) {
	if resolveBool(false, "SITEBRIDGE_TEST_UNSET_BOOL") {
		t.Fatal("unset env should resolve to false")
	}
	t.Setenv("SITEBRIDGE_TEST_BOOL", "true")
	if !resolveBool(false, "SITEBRIDGE_TEST_BOOL") {
		t.Fatal("env true should resolve to true")
	}
	if !resolveBool(true, "SITEBRIDGE_TEST_UNSET_BOOL") {
		t.Fatal("flag true should win")
	}
}
