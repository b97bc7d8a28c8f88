package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"sitebridge/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage error: %v", err)
	}
	return store
}

func TestCreateAndGetItem(t *testing.T) {
	store := newTestStorage(t)

	created, err := store.CreateItem("products", "p1", map[string]any{"title": "Lamp"})
	if err != nil {
		t.Fatalf("CreateItem error: %v", err)
	}
	if created.Collection != "products" || created.ID != "p1" {
		t.Fatalf("created = %+v", created)
	}

	item, ok := store.GetItem("products", "p1")
	if !ok {
		t.Fatal("GetItem should find the created item")
	}
	if item.Fields["title"] != "Lamp" {
		t.Fatalf("fields = %v", item.Fields)
	}

	if _, ok := store.GetItem("products", "absent"); ok {
		t.Fatal("GetItem should miss for unknown id")
	}
}

func TestUpdateItemFieldsMerges(t *testing.T) {
	store := newTestStorage(t)
	if _, err := store.CreateItem("products", "p1", map[string]any{"title": "Lamp", "price": 10}); err != nil {
		t.Fatalf("CreateItem error: %v", err)
	}

	updated, err := store.UpdateItemFields("products", "p1", map[string]any{"title": "Desk lamp", "color": "red"})
	if err != nil {
		t.Fatalf("UpdateItemFields error: %v", err)
	}
	if updated.Fields["title"] != "Desk lamp" {
		t.Fatalf("title = %v, want update to win", updated.Fields["title"])
	}
	if updated.Fields["price"] != 10 {
		t.Fatalf("price = %v, want existing field retained", updated.Fields["price"])
	}
	if updated.Fields["color"] != "red" {
		t.Fatalf("color = %v, want new field introduced", updated.Fields["color"])
	}
}

func TestUpdateItemFieldsNotFound(t *testing.T) {
	store := newTestStorage(t)
	_, err := store.UpdateItemFields("products", "ghost", map[string]any{"a": 1})
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("error = %v, want ErrItemNotFound", err)
	}
}

func TestReplaceItemReferences(t *testing.T) {
	store := newTestStorage(t)
	if _, err := store.CreateItem("posts", "p1", nil); err != nil {
		t.Fatalf("CreateItem error: %v", err)
	}

	item, err := store.ReplaceItemReferences("posts", "p1", "authors", []string{"a2", "a1"})
	if err != nil {
		t.Fatalf("ReplaceItemReferences error: %v", err)
	}
	if !reflect.DeepEqual(item.References["authors"], []string{"a2", "a1"}) {
		t.Fatalf("authors = %v, want given order", item.References["authors"])
	}

	item, err = store.ReplaceItemReferences("posts", "p1", "authors", []string{"a3"})
	if err != nil {
		t.Fatalf("ReplaceItemReferences error: %v", err)
	}
	if !reflect.DeepEqual(item.References["authors"], []string{"a3"}) {
		t.Fatalf("authors = %v, want full replacement", item.References["authors"])
	}

	if _, exists := item.Fields["authors"]; exists {
		t.Fatal("reference field must not appear in the field document")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")

	store, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage error: %v", err)
	}
	if _, err := store.CreateItem("products", "p1", map[string]any{"title": "Lamp"}); err != nil {
		t.Fatalf("CreateItem error: %v", err)
	}
	if _, err := store.ReplaceItemReferences("products", "p1", "tags", []string{"t1"}); err != nil {
		t.Fatalf("ReplaceItemReferences error: %v", err)
	}

	reopened, err := NewStorage(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	item, ok := reopened.GetItem("products", "p1")
	if !ok {
		t.Fatal("item lost across restart")
	}
	if item.Fields["title"] != "Lamp" {
		t.Fatalf("fields = %v", item.Fields)
	}
	if !reflect.DeepEqual(item.References["tags"], []string{"t1"}) {
		t.Fatalf("references = %v", item.References)
	}
}

func TestCreateMediaAssetAndList(t *testing.T) {
	store := newTestStorage(t)

	first, err := store.CreateMediaAsset(models.MediaAsset{
		Folder:    "gallery",
		FileName:  "a.png",
		FileURL:   "https://media.example.com/gallery/a.png",
		CreatedAt: time.Unix(100, 0).UTC(),
	})
	if err != nil {
		t.Fatalf("CreateMediaAsset error: %v", err)
	}
	if first.ID == "" {
		t.Fatal("asset id should be generated when absent")
	}
	if _, err := store.CreateMediaAsset(models.MediaAsset{
		ID:        "m2",
		Folder:    "other",
		FileName:  "b.jpg",
		FileURL:   "https://media.example.com/other/b.jpg",
		CreatedAt: time.Unix(200, 0).UTC(),
	}); err != nil {
		t.Fatalf("CreateMediaAsset error: %v", err)
	}

	assets, err := store.ListMediaAssets("gallery")
	if err != nil {
		t.Fatalf("ListMediaAssets error: %v", err)
	}
	if len(assets) != 1 || assets[0].FileName != "a.png" {
		t.Fatalf("assets = %+v", assets)
	}

	all, err := store.ListMediaAssets("")
	if err != nil {
		t.Fatalf("ListMediaAssets error: %v", err)
	}
	if len(all) != 2 || all[0].FileName != "a.png" || all[1].FileName != "b.jpg" {
		t.Fatalf("all assets = %+v", all)
	}
}

func TestGetItemReturnsCopy(t *testing.T) {
	store := newTestStorage(t)
	if _, err := store.CreateItem("products", "p1", map[string]any{"title": "Lamp"}); err != nil {
		t.Fatalf("CreateItem error: %v", err)
	}

	item, _ := store.GetItem("products", "p1")
	item.Fields["title"] = "mutated"

	fresh, _ := store.GetItem("products", "p1")
	if fresh.Fields["title"] != "Lamp" {
		t.Fatal("caller mutation leaked into the store")
	}
}

func TestPersistFailureRollsBack(t *testing.T) {
	store := newTestStorage(t)
	if _, err := store.CreateItem("products", "p1", map[string]any{"title": "Lamp"}); err != nil {
		t.Fatalf("CreateItem error: %v", err)
	}

	store.persistOverride = func(dataset) error { return errors.New("disk full") }
	if _, err := store.UpdateItemFields("products", "p1", map[string]any{"title": "New"}); err == nil {
		t.Fatal("expected persist failure to surface")
	}
	store.persistOverride = nil

	item, _ := store.GetItem("products", "p1")
	if item.Fields["title"] != "Lamp" {
		t.Fatalf("title = %v, want rollback to previous value", item.Fields["title"])
	}
}

func TestPing(t *testing.T) {
	store := newTestStorage(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error: %v", err)
	}
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Ping(cancelled); err == nil {
		t.Fatal("Ping should honor context cancellation")
	}
}
