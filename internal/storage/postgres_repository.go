package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sitebridge/internal/models"
)

const postgresOpTimeout = 10 * time.Second

type postgresRepository struct {
	pool *pgxpool.Pool
	cfg  PostgresConfig
}

// NewPostgresRepository opens a Postgres-backed repository and applies the
// schema migrations.
func NewPostgresRepository(dsn string, opts ...PostgresOption) (Repository, error) {
	cfg := newPostgresConfig(dsn, opts...)
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections >= 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := MigratePostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &postgresRepository{pool: pool, cfg: cfg}, nil
}

func (r *postgresRepository) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), postgresOpTimeout)
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close releases the connection pool.
func (r *postgresRepository) Close() {
	if r != nil && r.pool != nil {
		r.pool.Close()
	}
}

const itemColumns = "collection, id, fields, refs, created_at, updated_at"

func scanItem(row pgx.Row) (models.Item, error) {
	var (
		item       models.Item
		fieldsJSON []byte
		refsJSON   []byte
	)
	if err := row.Scan(&item.Collection, &item.ID, &fieldsJSON, &refsJSON, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return models.Item{}, err
	}
	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &item.Fields); err != nil {
			return models.Item{}, fmt.Errorf("decode item fields: %w", err)
		}
	}
	if item.Fields == nil {
		item.Fields = map[string]any{}
	}
	if len(refsJSON) > 0 {
		refs := map[string][]string{}
		if err := json.Unmarshal(refsJSON, &refs); err != nil {
			return models.Item{}, fmt.Errorf("decode item refs: %w", err)
		}
		if len(refs) > 0 {
			item.References = refs
		}
	}
	return item, nil
}

func (r *postgresRepository) CreateItem(collection, id string, fields map[string]any) (models.Item, error) {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return models.Item{}, fmt.Errorf("collection name is required")
	}
	if strings.TrimSpace(id) == "" {
		generated, err := generateID()
		if err != nil {
			return models.Item{}, err
		}
		id = generated
	}
	fieldsJSON, err := json.Marshal(cloneFields(fields))
	if err != nil {
		return models.Item{}, fmt.Errorf("encode item fields: %w", err)
	}

	ctx, cancel := r.opContext()
	defer cancel()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO items (collection, id, fields) VALUES ($1, $2, $3)
		 RETURNING `+itemColumns,
		collection, id, fieldsJSON)
	item, err := scanItem(row)
	if err != nil {
		return models.Item{}, fmt.Errorf("create item %s/%s: %w", collection, id, err)
	}
	return item, nil
}

func (r *postgresRepository) GetItem(collection, id string) (models.Item, bool) {
	ctx, cancel := r.opContext()
	defer cancel()
	row := r.pool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE collection = $1 AND id = $2`,
		collection, id)
	item, err := scanItem(row)
	if err != nil {
		return models.Item{}, false
	}
	return item, true
}

func (r *postgresRepository) UpdateItemFields(collection, id string, fields map[string]any) (models.Item, error) {
	fieldsJSON, err := json.Marshal(cloneFields(fields))
	if err != nil {
		return models.Item{}, fmt.Errorf("encode item fields: %w", err)
	}

	ctx, cancel := r.opContext()
	defer cancel()
	row := r.pool.QueryRow(ctx,
		`UPDATE items SET fields = fields || $3::jsonb, updated_at = now()
		 WHERE collection = $1 AND id = $2
		 RETURNING `+itemColumns,
		collection, id, fieldsJSON)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Item{}, fmt.Errorf("%w: %s/%s", ErrItemNotFound, collection, id)
	}
	if err != nil {
		return models.Item{}, fmt.Errorf("update item %s/%s: %w", collection, id, err)
	}
	return item, nil
}

func (r *postgresRepository) ReplaceItemReferences(collection, id, field string, ids []string) (models.Item, error) {
	if strings.TrimSpace(field) == "" {
		return models.Item{}, fmt.Errorf("reference field name is required")
	}
	idsJSON, err := json.Marshal(append([]string{}, ids...))
	if err != nil {
		return models.Item{}, fmt.Errorf("encode reference ids: %w", err)
	}

	ctx, cancel := r.opContext()
	defer cancel()
	row := r.pool.QueryRow(ctx,
		`UPDATE items SET refs = jsonb_set(refs, ARRAY[$3], $4::jsonb, true), updated_at = now()
		 WHERE collection = $1 AND id = $2
		 RETURNING `+itemColumns,
		collection, id, field, idsJSON)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Item{}, fmt.Errorf("%w: %s/%s", ErrItemNotFound, collection, id)
	}
	if err != nil {
		return models.Item{}, fmt.Errorf("replace references on %s/%s: %w", collection, id, err)
	}
	return item, nil
}

func (r *postgresRepository) CreateMediaAsset(asset models.MediaAsset) (models.MediaAsset, error) {
	if strings.TrimSpace(asset.ID) == "" {
		generated, err := generateID()
		if err != nil {
			return models.MediaAsset{}, err
		}
		asset.ID = generated
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := r.opContext()
	defer cancel()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO media_assets (id, folder, file_name, content_type, source_url, file_url, size_bytes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		asset.ID, asset.Folder, asset.FileName, asset.ContentType, asset.SourceURL, asset.FileURL, asset.SizeBytes, asset.CreatedAt)
	if err != nil {
		return models.MediaAsset{}, fmt.Errorf("create media asset %s: %w", asset.ID, err)
	}
	return asset, nil
}

func (r *postgresRepository) ListMediaAssets(folder string) ([]models.MediaAsset, error) {
	folder = strings.Trim(strings.TrimSpace(folder), "/")

	ctx, cancel := r.opContext()
	defer cancel()

	query := `SELECT id, folder, file_name, content_type, source_url, file_url, size_bytes, created_at
		 FROM media_assets`
	args := []any{}
	if folder != "" {
		query += ` WHERE folder = $1`
		args = append(args, folder)
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list media assets: %w", err)
	}
	defer rows.Close()

	assets := []models.MediaAsset{}
	for rows.Next() {
		var asset models.MediaAsset
		if err := rows.Scan(&asset.ID, &asset.Folder, &asset.FileName, &asset.ContentType,
			&asset.SourceURL, &asset.FileURL, &asset.SizeBytes, &asset.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan media asset: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list media assets: %w", err)
	}
	return assets, nil
}
