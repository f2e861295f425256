package api

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/job"
	"github.com/docgate/docgate/internal/queue"
)

//go:embed static/index.html
var frontendHTML []byte

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	store job.Store
	queue *queue.Queue
	cfg   *config.Config
}

// NewHandler constructs a Handler with the given dependencies.
func NewHandler(store job.Store, q *queue.Queue, cfg *config.Config) *Handler {
	return &Handler{store: store, queue: q, cfg: cfg}
}

// RegisterRoutes registers all API routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", h.ServeFrontend)
	mux.HandleFunc("POST /api/v1/jobs", h.CreateJob)
	mux.HandleFunc("GET /api/v1/jobs", h.ListJobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}", h.GetJob)
	mux.HandleFunc("DELETE /api/v1/jobs/{id}", h.DeleteJob)
	mux.HandleFunc("GET /api/v1/jobs/{id}/sse", h.StreamSSE)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// ServeFrontend serves the embedded single-page front-end.
func (h *Handler) ServeFrontend(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(frontendHTML) //nolint:errcheck
}

// CreateJob handles POST /api/v1/jobs. Async submissions get 202 with the
// pending job; {"sync": true} runs the worker path inline and returns 200
// with the terminal job.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	// The cap bounds the input text; the slack covers the JSON envelope.
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.cfg.MaxInputBytes)+8192)
	var req job.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Validation failures never create a job row and never reach the model.
	if err := req.Validate(h.cfg.MaxInputBytes); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	j := &job.Job{
		ID:          uuid.New().String(),
		Mode:        req.Mode,
		Input:       req.Input,
		Topic:       req.Topic,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
		Enhance:     req.Enhance,
		Status:      job.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.store.Create(r.Context(), j); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	if req.Sync {
		h.queue.Execute(r.Context(), j.ID)
		done, err := h.store.Get(r.Context(), j.ID)
		if err != nil || done == nil {
			writeError(w, http.StatusInternalServerError, "failed to load job result")
			return
		}
		writeJSON(w, http.StatusOK, done)
		return
	}

	if err := h.queue.Enqueue(r.Context(), j.ID); err != nil {
		writeError(w, http.StatusServiceUnavailable, "failed to enqueue job")
		return
	}

	writeJSON(w, http.StatusAccepted, j)
}

// ListJobs handles GET /api/v1/jobs and responds 200 with a paginated list of jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r.URL.Query().Get("limit"), 20)
	offset := parseIntParam(r.URL.Query().Get("offset"), 0)

	jobs, total, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	// Return an empty array instead of null when there are no jobs.
	if jobs == nil {
		jobs = []*job.Job{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":   jobs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// parseIntParam parses a query string integer, returning the fallback on empty or invalid input.
func parseIntParam(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

// GetJob handles GET /api/v1/jobs/{id}. The front-end polls this endpoint
// until the job is terminal.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	j, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	if j == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, j)
}

// DeleteJob handles DELETE /api/v1/jobs/{id} and responds 204.
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	j, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	if j == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete job")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /api/v1/health. It reports which broker backs the queue
// and whether the upstream API key is configured, without revealing it.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"broker":             h.queue.BrokerKind(),
		"model":              h.cfg.Model,
		"api_key_configured": h.cfg.GoogleAPIKey != "",
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
