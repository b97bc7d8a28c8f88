package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS items (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		fields JSONB NOT NULL DEFAULT '{}'::jsonb,
		refs JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (collection, id)
	)`,
	`CREATE TABLE IF NOT EXISTS media_assets (
		id TEXT PRIMARY KEY,
		folder TEXT NOT NULL DEFAULT '',
		file_name TEXT NOT NULL,
		content_type TEXT NOT NULL,
		source_url TEXT NOT NULL DEFAULT '',
		file_url TEXT NOT NULL,
		size_bytes BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS media_assets_folder_created_idx
		ON media_assets (folder, created_at)`,
}

// MigratePostgres applies the schema statements in order. Every statement is
// idempotent so repeated startups are safe.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	for _, statement := range postgresMigrations {
		if _, err := pool.Exec(ctx, statement); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
