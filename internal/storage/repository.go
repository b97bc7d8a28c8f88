package storage

import (
	"context"
	"errors"

	"sitebridge/internal/models"
)

// ErrItemNotFound is returned when the addressed collection item does not
// exist.
var ErrItemNotFound = errors.New("item not found")

// Repository exposes the datastore operations required by the API handlers
// and the import processor.
type Repository interface {
	Ping(ctx context.Context) error

	CreateItem(collection, id string, fields map[string]any) (models.Item, error)
	GetItem(collection, id string) (models.Item, bool)
	// UpdateItemFields merges the provided values over the stored field
	// document in one atomic write. Update values win on collision; new
	// fields may be introduced.
	UpdateItemFields(collection, id string, fields map[string]any) (models.Item, error)
	// ReplaceItemReferences swaps the full id list of a reference field.
	// The new list fully replaces the prior set.
	ReplaceItemReferences(collection, id, field string, ids []string) (models.Item, error)

	CreateMediaAsset(asset models.MediaAsset) (models.MediaAsset, error)
	ListMediaAssets(folder string) ([]models.MediaAsset, error)
}

var _ Repository = (*Storage)(nil)
