package api

import (
	"context"
	"log/slog"
	"net/http"

	"sitebridge/internal/media"
	"sitebridge/internal/observability/metrics"
	"sitebridge/internal/storage"
)

type Handler struct {
	Store     storage.Repository
	Importer  *media.Importer
	Processor *ImportProcessor
	Logger    *slog.Logger
	Metrics   *metrics.Recorder
}

func NewHandler(store storage.Repository, importer *media.Importer, processor *ImportProcessor) *Handler {
	return &Handler{Store: store, Importer: importer, Processor: processor}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *Handler) recorder() *metrics.Recorder {
	if h.Metrics != nil {
		return h.Metrics
	}
	return metrics.Default()
}

type componentStatus struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) componentHealth(ctx context.Context) ([]componentStatus, string, int) {
	overallStatus := "ok"
	statusCode := http.StatusOK
	recordComponent := func(component string, err error) componentStatus {
		status := "ok"
		message := ""
		if err != nil {
			status = "degraded"
			message = err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
		return componentStatus{Component: component, Status: status, Error: message}
	}

	components := make([]componentStatus, 0, 2)
	if h.Store != nil {
		components = append(components, recordComponent("datastore", h.Store.Ping(ctx)))
	}
	if h.Processor != nil {
		if contexts := h.Processor.Contexts(); contexts != nil {
			components = append(components, recordComponent("import_contexts", contexts.Ping(ctx)))
		}
	}
	return components, overallStatus, statusCode
}

// Health reports readiness of the datastore and the import-context store.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed(r.Method))
		return
	}
	components, status, code := h.componentHealth(r.Context())
	writeJSON(w, code, map[string]any{
		"status":     status,
		"components": components,
	})
}
