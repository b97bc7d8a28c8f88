package api

import (
	"fmt"
	"net/http"
	"strings"

	"sitebridge/internal/media"
	"sitebridge/internal/models"
	"sitebridge/internal/observability/logging"
)

type bulkImage struct {
	ImageName string `json:"imageName"`
	PublicURL string `json:"publicUrl"`
}

type bulkUploadRequest struct {
	FolderName string      `json:"folderName"`
	Images     []bulkImage `json:"images"`
}

type bulkUploadResponse struct {
	Success  bool                  `json:"success"`
	Uploaded []models.UploadResult `json:"uploaded"`
}

func errMethodNotAllowed(method string) error {
	return fmt.Errorf("method %s not allowed", method)
}

// ImageBulkUploader imports a list of images into a named media folder.
// Entries without a publicUrl are skipped; any other failure aborts the batch
// and the partial results are not reported, though already-transferred assets
// remain in the media store.
func (h *Handler) ImageBulkUploader(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	logger := logging.WithContext(r.Context(), h.logger())

	var req bulkUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	folder := strings.TrimSpace(req.FolderName)
	if folder == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("folderName is required"))
		return
	}

	h.recorder().ImportJobStarted("bulk")
	uploaded := make([]models.UploadResult, 0, len(req.Images))
	for _, image := range req.Images {
		source := strings.TrimSpace(image.PublicURL)
		if source == "" {
			logger.Warn("skipping image without publicUrl", "folder", folder, "image_name", image.ImageName)
			continue
		}
		asset, err := h.Importer.Import(r.Context(), media.ImportRequest{
			Folder:    folder,
			FileName:  image.ImageName,
			SourceURL: source,
		})
		if err != nil {
			h.recorder().ImportJobFailed("bulk")
			logger.Error("bulk image import failed", "folder", folder, "source_url", source, "error", err)
			writeError(w, http.StatusBadRequest, err)
			return
		}
		uploaded = append(uploaded, models.UploadResult{
			OriginalURL: source,
			FileURL:     asset.FileURL,
			FileName:    asset.FileName,
			MediaID:     asset.ID,
		})
	}
	h.recorder().ImportJobCompleted("bulk")
	writeJSON(w, http.StatusOK, bulkUploadResponse{Success: true, Uploaded: uploaded})
}
