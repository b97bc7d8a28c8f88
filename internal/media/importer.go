// Package media transfers images from remote URLs into the managed media
// store and records the resulting assets.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"sitebridge/internal/models"
)

// AssetStore records imported media assets. Satisfied by storage.Repository.
type AssetStore interface {
	CreateMediaAsset(asset models.MediaAsset) (models.MediaAsset, error)
}

// ImportRequest describes a single image transfer. FileName is optional and
// falls back to the source URL's last path segment.
type ImportRequest struct {
	Folder    string
	FileName  string
	SourceURL string
}

// Importer fetches remote media and persists it as a blob plus an asset
// record. All transfers are synchronous; asynchronous scheduling lives in the
// API layer's import processor.
type Importer struct {
	Fetcher RemoteFetcher
	Blobs   BlobStore
	Assets  AssetStore
	Logger  *slog.Logger

	// Now and NewID exist for tests; nil means time.Now / random UUIDs.
	Now   func() time.Time
	NewID func() string
}

// Import transfers one image into the media store. The returned asset carries
// the stable file URL and media id used in API responses and field write-backs.
func (im *Importer) Import(ctx context.Context, req ImportRequest) (models.MediaAsset, error) {
	source := strings.TrimSpace(req.SourceURL)
	if source == "" {
		return models.MediaAsset{}, fmt.Errorf("source URL is required")
	}
	if im.Fetcher == nil || im.Blobs == nil {
		return models.MediaAsset{}, fmt.Errorf("media importer is not configured")
	}

	fileName := ResolveFileName(req.FileName, source, im.Now)
	contentType := ContentTypeFor(fileName)

	body, size, err := im.Fetcher.Fetch(ctx, source)
	if err != nil {
		return models.MediaAsset{}, err
	}
	defer body.Close()

	key := objectKey(req.Folder, fileName)
	ref, err := im.Blobs.Put(ctx, key, contentType, body, size)
	if err != nil {
		return models.MediaAsset{}, err
	}

	asset := models.MediaAsset{
		ID:          im.newID(),
		Folder:      normalizeFolder(req.Folder),
		FileName:    fileName,
		ContentType: contentType,
		SourceURL:   source,
		FileURL:     ref.URL,
		SizeBytes:   size,
		CreatedAt:   im.now(),
	}
	if im.Assets != nil {
		recorded, err := im.Assets.CreateMediaAsset(asset)
		if err != nil {
			return models.MediaAsset{}, fmt.Errorf("record media asset: %w", err)
		}
		asset = recorded
	}
	if im.Logger != nil {
		im.Logger.Info("media imported",
			"media_id", asset.ID,
			"folder", asset.Folder,
			"file_name", asset.FileName,
			"source_url", asset.SourceURL)
	}
	return asset, nil
}

func (im *Importer) now() time.Time {
	if im.Now != nil {
		return im.Now()
	}
	return time.Now().UTC()
}

func (im *Importer) newID() string {
	if im.NewID != nil {
		return im.NewID()
	}
	return uuid.NewString()
}

// normalizeFolder trims slashes; folder names may themselves encode nested
// subpaths ("sites/acme/gallery").
func normalizeFolder(folder string) string {
	return strings.Trim(strings.TrimSpace(folder), "/")
}

func objectKey(folder, fileName string) string {
	normalized := normalizeFolder(folder)
	if normalized == "" {
		return fileName
	}
	return path.Join(normalized, fileName)
}
