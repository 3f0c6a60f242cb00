package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RS-labhub/devcontainer-generator/app/usecase"
	"github.com/RS-labhub/devcontainer-generator/internal/domain/repository"
)

// Handler serves the job API. Generation itself happens in the worker; the
// handler only enqueues jobs and reads results back.
type Handler struct {
	jobService      usecase.JobUsecase
	artifactService usecase.ArtifactUsecase
	logger          *slog.Logger
	upgrader        websocket.Upgrader

	reqDuration *prometheus.HistogramVec
	reqCount    *prometheus.CounterVec
	errCount    *prometheus.CounterVec
}

func NewHandler(
	jobService usecase.JobUsecase,
	artifactService usecase.ArtifactUsecase,
	logger *slog.Logger,
) *Handler {

	reqDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	reqCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "path"},
	)

	errCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of HTTP request errors.",
		},
		[]string{"method", "path", "status"},
	)

	prometheus.MustRegister(reqDuration, reqCount, errCount)

	return &Handler{
		jobService:      jobService,
		artifactService: artifactService,
		logger:          logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		reqDuration: reqDuration,
		reqCount:    reqCount,
		errCount:    errCount,
	}
}

func (h *Handler) withMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
		method := r.Method

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		duration := time.Since(start).Seconds()
		statusStr := strconv.Itoa(rw.status)

		h.reqCount.WithLabelValues(method, path).Inc()
		h.reqDuration.WithLabelValues(method, path, statusStr).Observe(duration)

		if rw.status >= 400 {
			h.errCount.WithLabelValues(method, path, statusStr).Inc()
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/jobs", h.withMetrics(h.handleCreateJob)).Methods(http.MethodPost)
	api.HandleFunc("/jobs", h.withMetrics(h.handleListJobs)).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", h.withMetrics(h.handleGetJob)).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", h.withMetrics(h.handleDeleteJob)).Methods(http.MethodDelete)
	api.HandleFunc("/jobs/{id}/artifact", h.withMetrics(h.handleGetArtifact)).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}/events", h.handleJobEvents).Methods(http.MethodGet)
	api.HandleFunc("/artifacts", h.withMetrics(h.handleListArtifacts)).Methods(http.MethodGet)
	api.HandleFunc("/health", h.withMetrics(h.handleHealth)).Methods(http.MethodGet)

	// Prometheus
	r.Handle("/metrics", promhttp.Handler())
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

type createJobReq struct {
	RepoURL         string  `json:"repo_url"`
	Context         string  `json:"context"`
	DevContainerURL *string `json:"devcontainer_url,omitempty"`
	Regenerate      bool    `json:"regenerate"`
	MaxRetries      *int    `json:"max_retries,omitempty"`
}

// POST /api/v1/jobs
func (h *Handler) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}
	if req.RepoURL == "" || req.Context == "" {
		writeError(w, http.StatusBadRequest, errors.New("repo_url and context are required"))
		return
	}

	// Absent max_retries defers to the service default.
	maxRetries := -1
	if req.MaxRetries != nil {
		if *req.MaxRetries < 0 {
			writeError(w, http.StatusBadRequest, errors.New("max_retries must not be negative"))
			return
		}
		maxRetries = *req.MaxRetries
	}

	job, err := h.jobService.CreateJob(r.Context(), usecase.CreateJobParams{
		RepoURL:         req.RepoURL,
		Context:         req.Context,
		DevContainerURL: req.DevContainerURL,
		Regenerate:      req.Regenerate,
		MaxRetries:      maxRetries,
	})
	if err != nil {
		h.logger.Error("create job failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusCreated, job)
}

// GET /api/v1/jobs
func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobService.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("list jobs failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// GET /api/v1/jobs/{id}
func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := h.jobService.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("job not found"))
			return
		}
		h.logger.Error("get job failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// DELETE /api/v1/jobs/{id}
func (h *Handler) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.jobService.DeleteJob(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("job not found"))
			return
		}
		h.logger.Error("delete job failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// GET /api/v1/jobs/{id}/artifact
func (h *Handler) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	artifact, err := h.artifactService.GetByJobID(r.Context(), id)
	if err != nil {
		h.logger.Error("get artifact failed", "job_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if artifact == nil {
		writeError(w, http.StatusNotFound, errors.New("artifact not found"))
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

// GET /api/v1/artifacts?repo_url=...
func (h *Handler) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	repoURL := r.URL.Query().Get("repo_url")
	if repoURL == "" {
		writeError(w, http.StatusBadRequest, errors.New("repo_url query parameter is required"))
		return
	}
	artifacts, err := h.artifactService.ListByURL(r.Context(), repoURL)
	if err != nil {
		h.logger.Error("list artifacts failed", "repo_url", repoURL, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, artifacts)
}

type jobEvent struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GET /api/v1/jobs/{id}/events
//
// Streams status transitions over a websocket until the job reaches a
// terminal state or the client disconnects.
func (h *Handler) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.jobService.GetJob(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("job not found"))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "id", id, "err", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastStatus string
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			job, err := h.jobService.GetJob(r.Context(), id)
			if err != nil {
				h.logger.Warn("job poll failed during event stream", "id", id, "err", err)
				return
			}
			if string(job.Status) == lastStatus {
				continue
			}
			lastStatus = string(job.Status)
			event := jobEvent{
				ID:        job.ID,
				Status:    lastStatus,
				Error:     job.Error,
				UpdatedAt: job.UpdatedAt,
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
			if job.IsTerminal() {
				return
			}
		}
	}
}

// GET /api/v1/health
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"ok": true,
		"ts": time.Now().UTC(),
	}
	writeJSON(w, http.StatusOK, status)
}
