// Package models defines the entities shared between the API handlers and the
// storage layer.
package models

import "time"

// Item is a structured row in a named collection. Fields is a free-form
// document; References holds per-field ordered lists of other items' ids and
// is maintained separately from the main field document.
type Item struct {
	Collection string              `json:"collection"`
	ID         string              `json:"id"`
	Fields     map[string]any      `json:"fields"`
	References map[string][]string `json:"references,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

// CloneFields returns a shallow copy of the item's field document so callers
// can merge updates without mutating stored state.
func (i Item) CloneFields() map[string]any {
	if i.Fields == nil {
		return map[string]any{}
	}
	fields := make(map[string]any, len(i.Fields))
	for k, v := range i.Fields {
		fields[k] = v
	}
	return fields
}

// MediaAsset records an image persisted in the managed media store.
type MediaAsset struct {
	ID          string    `json:"id"`
	Folder      string    `json:"folder"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SourceURL   string    `json:"sourceUrl"`
	FileURL     string    `json:"fileUrl"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ImportContext correlates an asynchronous media import back to the
// collection item field that requested it. It is attached to the import job
// and round-tripped unchanged to the completion callback.
type ImportContext struct {
	Collection string `json:"collectionName"`
	ItemID     string `json:"itemId"`
	Field      string `json:"fieldName"`
}

// Empty reports whether the context carries no correlation data at all.
func (c ImportContext) Empty() bool {
	return c.Collection == "" && c.ItemID == "" && c.Field == ""
}

// FileInfo describes the stored result of a finished media import as seen by
// the completion callback.
type FileInfo struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	MediaID  string `json:"mediaId"`
}

// UploadResult is the per-image payload returned by the bulk uploader.
type UploadResult struct {
	OriginalURL string `json:"originalUrl"`
	FileURL     string `json:"fileUrl"`
	FileName    string `json:"fileName"`
	MediaID     string `json:"mediaId"`
}
