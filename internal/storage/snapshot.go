package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"sitebridge/internal/models"
)

// Snapshot is a point-in-time export of the JSON datastore, used by the
// migration tooling to move data into Postgres.
type Snapshot struct {
	Items       []models.Item
	MediaAssets []models.MediaAsset
}

// SnapshotCounts summarises a snapshot for logging and post-import checks.
type SnapshotCounts struct {
	Items       int
	MediaAssets int
}

// Counts returns the record totals in the snapshot.
func (s Snapshot) Counts() SnapshotCounts {
	return SnapshotCounts{Items: len(s.Items), MediaAssets: len(s.MediaAssets)}
}

// LoadSnapshotFromJSON reads the JSON datastore at path into a snapshot.
// Records come back in deterministic order so repeated runs behave the same.
func LoadSnapshotFromJSON(path string) (Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	var data dataset
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		if errors.Is(err, io.EOF) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("decode store file: %w", err)
	}

	snapshot := Snapshot{
		Items:       make([]models.Item, 0, len(data.Items)),
		MediaAssets: make([]models.MediaAsset, 0, len(data.MediaAssets)),
	}
	for _, item := range data.Items {
		snapshot.Items = append(snapshot.Items, cloneItem(item))
	}
	for _, asset := range data.MediaAssets {
		snapshot.MediaAssets = append(snapshot.MediaAssets, asset)
	}
	sort.Slice(snapshot.Items, func(i, j int) bool {
		if snapshot.Items[i].Collection == snapshot.Items[j].Collection {
			return snapshot.Items[i].ID < snapshot.Items[j].ID
		}
		return snapshot.Items[i].Collection < snapshot.Items[j].Collection
	})
	sort.Slice(snapshot.MediaAssets, func(i, j int) bool {
		return snapshot.MediaAssets[i].ID < snapshot.MediaAssets[j].ID
	})
	return snapshot, nil
}

// ImportSnapshotToPostgres upserts every snapshot record, preserving the
// original timestamps. Existing rows with the same key are overwritten, so the
// import can be re-run after a partial failure.
func ImportSnapshotToPostgres(ctx context.Context, pool *pgxpool.Pool, snapshot Snapshot) error {
	for _, item := range snapshot.Items {
		fieldsJSON, err := json.Marshal(cloneFields(item.Fields))
		if err != nil {
			return fmt.Errorf("encode fields for %s/%s: %w", item.Collection, item.ID, err)
		}
		refs := item.References
		if refs == nil {
			refs = map[string][]string{}
		}
		refsJSON, err := json.Marshal(refs)
		if err != nil {
			return fmt.Errorf("encode refs for %s/%s: %w", item.Collection, item.ID, err)
		}
		_, err = pool.Exec(ctx,
			`INSERT INTO items (collection, id, fields, refs, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (collection, id) DO UPDATE
			 SET fields = EXCLUDED.fields, refs = EXCLUDED.refs,
			     created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at`,
			item.Collection, item.ID, fieldsJSON, refsJSON, item.CreatedAt, item.UpdatedAt)
		if err != nil {
			return fmt.Errorf("import item %s/%s: %w", item.Collection, item.ID, err)
		}
	}

	for _, asset := range snapshot.MediaAssets {
		_, err := pool.Exec(ctx,
			`INSERT INTO media_assets (id, folder, file_name, content_type, source_url, file_url, size_bytes, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (id) DO UPDATE
			 SET folder = EXCLUDED.folder, file_name = EXCLUDED.file_name,
			     content_type = EXCLUDED.content_type, source_url = EXCLUDED.source_url,
			     file_url = EXCLUDED.file_url, size_bytes = EXCLUDED.size_bytes,
			     created_at = EXCLUDED.created_at`,
			asset.ID, asset.Folder, asset.FileName, asset.ContentType,
			asset.SourceURL, asset.FileURL, asset.SizeBytes, asset.CreatedAt)
		if err != nil {
			return fmt.Errorf("import media asset %s: %w", asset.ID, err)
		}
	}
	return nil
}
