// Package storage persists collection items and media asset records. The
// default driver keeps everything in memory backed by a JSON snapshot file;
// a Postgres driver is available for shared deployments.
package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"sitebridge/internal/models"
)

type dataset struct {
	Items       map[string]models.Item       `json:"items"`
	MediaAssets map[string]models.MediaAsset `json:"mediaAssets"`
}

func newDataset() dataset {
	return dataset{
		Items:       make(map[string]models.Item),
		MediaAssets: make(map[string]models.MediaAsset),
	}
}

// Storage is the JSON-file-backed repository implementation.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
	now             func() time.Time
}

// Option mutates storage configuration.
type Option func(*Storage)

// WithClock overrides the timestamp source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStorage opens (or creates) the JSON datastore at path.
func NewStorage(path string, opts ...Option) (*Storage, error) {
	store := &Storage{
		filePath: path,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = newDataset()
		return nil
	} else if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode store file: %w", err)
	}
	if s.data.Items == nil {
		s.data.Items = make(map[string]models.Item)
	}
	if s.data.MediaAssets == nil {
		s.data.MediaAssets = make(map[string]models.MediaAsset)
	}
	return nil
}

func (s *Storage) persist() error {
	if s.persistOverride != nil {
		return s.persistOverride(s.data)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.data); err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	success = true
	return nil
}

// Ping reports datastore availability; the JSON driver is always reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return ctx.Err()
}

func itemKey(collection, id string) string {
	return collection + "/" + id
}

func (s *Storage) CreateItem(collection, id string, fields map[string]any) (models.Item, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	key := itemKey(collection, id)
	if _, exists := s.data.Items[key]; exists {
		return models.Item{}, fmt.Errorf("item %s already exists in %s", id, collection)
	}

	now := s.now()
	item := models.Item{
		Collection: collection,
		ID:         id,
		Fields:     cloneFields(fields),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.data.Items[key] = item
	if err := s.persist(); err != nil {
		delete(s.data.Items, key)
		return models.Item{}, err
	}
	return cloneItem(item), nil
}

func (s *Storage) GetItem(collection, id string) (models.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.data.Items[itemKey(collection, id)]
	if !ok {
		return models.Item{}, false
	}
	return cloneItem(item), true
}

func (s *Storage) UpdateItemFields(collection, id string, fields map[string]any) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := itemKey(collection, id)
	item, ok := s.data.Items[key]
	if !ok {
		return models.Item{}, fmt.Errorf("%w: %s/%s", ErrItemNotFound, collection, id)
	}

	previous := item
	merged := item.CloneFields()
	for k, v := range fields {
		merged[k] = v
	}
	item.Fields = merged
	item.UpdatedAt = s.now()
	s.data.Items[key] = item
	if err := s.persist(); err != nil {
		s.data.Items[key] = previous
		return models.Item{}, err
	}
	return cloneItem(item), nil
}

func (s *Storage) ReplaceItemReferences(collection, id, field string, ids []string) (models.Item, error) {
	if strings.TrimSpace(field) == "" {
		return models.Item{}, fmt.Errorf("reference field name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := itemKey(collection, id)
	item, ok := s.data.Items[key]
	if !ok {
		return models.Item{}, fmt.Errorf("%w: %s/%s", ErrItemNotFound, collection, id)
	}

	previous := item
	references := make(map[string][]string, len(item.References)+1)
	for k, v := range item.References {
		references[k] = append([]string(nil), v...)
	}
	references[field] = append([]string(nil), ids...)
	item.References = references
	item.UpdatedAt = s.now()
	s.data.Items[key] = item
	if err := s.persist(); err != nil {
		s.data.Items[key] = previous
		return models.Item{}, err
	}
	return cloneItem(item), nil
}

func (s *Storage) CreateMediaAsset(asset models.MediaAsset) (models.MediaAsset, error) {
	if strings.TrimSpace(asset.ID) == "" {
		generated, err := generateID()
		if err != nil {
			return models.MediaAsset{}, err
		}
		asset.ID = generated
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data.MediaAssets[asset.ID]; exists {
		return models.MediaAsset{}, fmt.Errorf("media asset %s already exists", asset.ID)
	}
	s.data.MediaAssets[asset.ID] = asset
	if err := s.persist(); err != nil {
		delete(s.data.MediaAssets, asset.ID)
		return models.MediaAsset{}, err
	}
	return asset, nil
}

func (s *Storage) ListMediaAssets(folder string) ([]models.MediaAsset, error) {
	folder = strings.Trim(strings.TrimSpace(folder), "/")

	s.mu.RLock()
	defer s.mu.RUnlock()

	assets := make([]models.MediaAsset, 0, len(s.data.MediaAssets))
	for _, asset := range s.data.MediaAssets {
		if folder != "" && asset.Folder != folder {
			continue
		}
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool {
		if assets[i].CreatedAt.Equal(assets[j].CreatedAt) {
			return assets[i].ID < assets[j].ID
		}
		return assets[i].CreatedAt.Before(assets[j].CreatedAt)
	})
	return assets, nil
}

func cloneItem(item models.Item) models.Item {
	item.Fields = cloneFields(item.Fields)
	if item.References != nil {
		references := make(map[string][]string, len(item.References))
		for k, v := range item.References {
			references[k] = append([]string(nil), v...)
		}
		item.References = references
	}
	return item
}

func cloneFields(fields map[string]any) map[string]any {
	cloned := make(map[string]any, len(fields))
	for k, v := range fields {
		cloned[k] = v
	}
	return cloned
}

func generateID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
