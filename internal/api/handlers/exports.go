package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/dvloznov/bookkeeper/internal/api/middleware"
	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/dvloznov/bookkeeper/internal/jobs"
	"github.com/dvloznov/bookkeeper/internal/logger"
)

// ExportsHandler handles report export jobs.
type ExportsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
}

// NewExportsHandler creates a new exports handler.
func NewExportsHandler(publisher jobs.Publisher, store jobs.JobStore) *ExportsHandler {
	return &ExportsHandler{
		publisher: publisher,
		store:     store,
	}
}

// Create handles POST /exports. An empty body or provider exports the
// association report.
func (h *ExportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	job := &jobs.ExportReportJob{Provider: req.Provider}
	if err := h.publisher.PublishExportReport(r.Context(), job); err != nil {
		middleware.WriteDomainError(w, logger.FromContext(r.Context()), domain.Upstream("enqueue export", err))
		return
	}

	log := logger.FromContext(r.Context())
	log.Info().
		Str("job_id", job.JobID).
		Str("provider", job.Provider).
		Msg("Export job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, job)
}

// Get handles GET /exports/{id}
func (h *ExportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteDomainError(w, logger.FromContext(r.Context()), err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// List handles GET /exports
func (h *ExportsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Provider: query.Get("provider"),
		Status:   jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		middleware.WriteDomainError(w, logger.FromContext(r.Context()), err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}
