package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"sitebridge/internal/fields"
	"sitebridge/internal/models"
	"sitebridge/internal/observability/logging"
	"sitebridge/internal/storage"
)

type itemUpdateRequest struct {
	CollectionName string          `json:"collectionName"`
	ItemID         string          `json:"itemId"`
	Updates        json.RawMessage `json:"updates"`
}

func (req itemUpdateRequest) validate() error {
	if strings.TrimSpace(req.CollectionName) == "" {
		return fmt.Errorf("collectionName is required")
	}
	if strings.TrimSpace(req.ItemID) == "" {
		return fmt.Errorf("itemId is required")
	}
	return nil
}

func (h *Handler) decodeItemUpdate(w http.ResponseWriter, r *http.Request) (itemUpdateRequest, fields.UpdateSet, bool) {
	var req itemUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return req, fields.UpdateSet{}, false
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return req, fields.UpdateSet{}, false
	}
	set, err := fields.Parse(req.Updates)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return req, fields.UpdateSet{}, false
	}
	return req, set, true
}

func (h *Handler) enqueueImports(w http.ResponseWriter, r *http.Request, req itemUpdateRequest, imports []fields.ImageImport) bool {
	logger := logging.WithContext(r.Context(), h.logger())
	for _, imp := range imports {
		id, err := h.Processor.EnqueueImport(r.Context(), ImportJob{
			Context: models.ImportContext{
				Collection: req.CollectionName,
				ItemID:     req.ItemID,
				Field:      imp.Field,
			},
			SourceURL: imp.SourceURL,
			Folder:    req.CollectionName,
		})
		if err != nil {
			logger.Error("failed to issue image import",
				"collection", req.CollectionName,
				"item_id", req.ItemID,
				"field", imp.Field,
				"error", err)
			writeError(w, http.StatusBadRequest, err)
			return false
		}
		logger.Info("image import issued",
			"import_id", id,
			"collection", req.CollectionName,
			"item_id", req.ItemID,
			"field", imp.Field)
		h.recorder().ObserveFieldUpdate("image")
	}
	return true
}

// UploadImageToItem issues an asynchronous import for every image_ entry in
// the updates payload. The response reports that the imports were issued, not
// that the field write-backs completed.
func (h *Handler) UploadImageToItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	req, set, ok := h.decodeItemUpdate(w, r)
	if !ok {
		return
	}
	if len(set.Imports) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("updates must contain at least one image_ field"))
		return
	}
	if !h.enqueueImports(w, r, req, set.Imports) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UpdateItemField merges plain, date_ and safebool_ values into the item,
// replaces reference lists for refs_ entries, and issues asynchronous imports
// for image_ entries. The main merge is atomic; reference writes follow it
// independently and do not roll it back on failure.
func (h *Handler) UpdateItemField(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	logger := logging.WithContext(r.Context(), h.logger())
	req, set, ok := h.decodeItemUpdate(w, r)
	if !ok {
		return
	}

	if _, err := h.Store.UpdateItemFields(req.CollectionName, req.ItemID, set.Fields); err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			writeError(w, http.StatusBadRequest, fmt.Errorf("item %s/%s not found", req.CollectionName, req.ItemID))
			return
		}
		logger.Error("item update failed",
			"collection", req.CollectionName,
			"item_id", req.ItemID,
			"error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	for range set.Fields {
		h.recorder().ObserveFieldUpdate("plain")
	}

	for _, op := range set.Refs {
		if _, err := h.Store.ReplaceItemReferences(req.CollectionName, req.ItemID, op.Field, op.IDs); err != nil {
			logger.Error("reference replacement failed",
				"collection", req.CollectionName,
				"item_id", req.ItemID,
				"field", op.Field,
				"error", err)
			writeError(w, http.StatusBadRequest, err)
			return
		}
		h.recorder().ObserveFieldUpdate("refs")
	}

	if !h.enqueueImports(w, r, req, set.Imports) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
