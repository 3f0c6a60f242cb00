package transport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RS-labhub/devcontainer-generator/app/usecase"
	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
	"github.com/RS-labhub/devcontainer-generator/internal/domain/repository"
	"github.com/RS-labhub/devcontainer-generator/internal/infrastructure/transport"
)

type fakeJobService struct {
	mu   sync.Mutex
	jobs map[string]*entity.Job
}

func (f *fakeJobService) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = make(map[string]*entity.Job)
}

func (f *fakeJobService) CreateJob(_ context.Context, params usecase.CreateJobParams) (*entity.Job, error) {
	if params.RepoURL == "" || params.Context == "" {
		return nil, fmt.Errorf("repo_url and context are required")
	}
	job := entity.NewJob(params.RepoURL, params.Context, params.DevContainerURL, params.Regenerate, params.MaxRetries)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeJobService) GetJob(_ context.Context, id string) (*entity.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, repository.ErrNotFound)
	}
	return job, nil
}

func (f *fakeJobService) ListJobs(context.Context) ([]*entity.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.Job, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (f *fakeJobService) DeleteJob(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[id]; !ok {
		return fmt.Errorf("job %s: %w", id, repository.ErrNotFound)
	}
	delete(f.jobs, id)
	return nil
}

type fakeArtifactService struct {
	mu        sync.Mutex
	artifacts map[string]*entity.Artifact
}

func (f *fakeArtifactService) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artifacts = make(map[string]*entity.Artifact)
}

func (f *fakeArtifactService) put(a *entity.Artifact) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artifacts[a.JobID] = a
}

func (f *fakeArtifactService) GetByJobID(_ context.Context, jobID string) (*entity.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.artifacts[jobID], nil
}

func (f *fakeArtifactService) ListByURL(_ context.Context, repoURL string) ([]*entity.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.Artifact, 0)
	for _, a := range f.artifacts {
		if a.URL == repoURL {
			out = append(out, a)
		}
	}
	return out, nil
}

// The handler registers its collectors with the default prometheus registry,
// so it is built once for the whole test binary.
var (
	setupOnce    sync.Once
	sharedRouter *mux.Router
	sharedJobs   = &fakeJobService{}
	sharedArts   = &fakeArtifactService{}
)

func setup(t *testing.T) (*mux.Router, *fakeJobService, *fakeArtifactService) {
	t.Helper()
	setupOnce.Do(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		h := transport.NewHandler(sharedJobs, sharedArts, logger)
		sharedRouter = mux.NewRouter()
		h.RegisterRoutes(sharedRouter)
	})
	sharedJobs.reset()
	sharedArts.reset()
	return sharedRouter, sharedJobs, sharedArts
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateJob(t *testing.T) {
	router, jobs, _ := setup(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/jobs", map[string]any{
		"repo_url": "https://github.com/acme/widgets",
		"context":  "repo context",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var job entity.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, entity.JobStatusPending, job.Status)
	assert.Equal(t, -1, job.MaxRetries, "absent max_retries defers to the service default")

	stored, err := jobs.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/widgets", stored.RepoURL)
}

func TestCreateJobValidation(t *testing.T) {
	router, _, _ := setup(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/jobs", map[string]any{"repo_url": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/jobs", map[string]any{
		"repo_url": "x", "context": "y", "max_retries": -2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader([]byte("{not json")))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetJob(t *testing.T) {
	router, jobs, _ := setup(t)
	job, err := jobs.CreateJob(context.Background(), usecase.CreateJobParams{
		RepoURL: "https://github.com/acme/widgets", Context: "ctx", MaxRetries: -1,
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/jobs/"+job.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got entity.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, job.ID, got.ID)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListJobs(t *testing.T) {
	router, jobs, _ := setup(t)
	for i := 0; i < 3; i++ {
		_, err := jobs.CreateJob(context.Background(), usecase.CreateJobParams{
			RepoURL: fmt.Sprintf("https://github.com/acme/repo%d", i), Context: "ctx", MaxRetries: -1,
		})
		require.NoError(t, err)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []entity.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 3)
}

func TestDeleteJob(t *testing.T) {
	router, jobs, _ := setup(t)
	job, err := jobs.CreateJob(context.Background(), usecase.CreateJobParams{
		RepoURL: "https://github.com/acme/widgets", Context: "ctx", MaxRetries: -1,
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/jobs/"+job.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/jobs/"+job.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetArtifact(t *testing.T) {
	router, _, arts := setup(t)
	res := &entity.GenerationResult{JSON: `{"name": "a", "image": "b"}`, Generated: true, Model: "gpt-4o-mini"}
	arts.put(entity.NewArtifact("job-9", "https://github.com/acme/widgets", "ctx", res))

	rec := doJSON(t, router, http.MethodGet, "/api/v1/jobs/job-9/artifact", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got entity.Artifact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, res.JSON, got.DevContainerJSON)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/jobs/absent/artifact", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListArtifacts(t *testing.T) {
	router, _, arts := setup(t)
	res := &entity.GenerationResult{JSON: `{"name": "a", "image": "b"}`, Generated: true}
	arts.put(entity.NewArtifact("job-1", "https://github.com/acme/widgets", "ctx", res))
	arts.put(entity.NewArtifact("job-2", "https://github.com/acme/other", "ctx", res))

	rec := doJSON(t, router, http.MethodGet, "/api/v1/artifacts?repo_url=https%3A%2F%2Fgithub.com%2Facme%2Fwidgets", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []entity.Artifact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "job-1", got[0].JobID)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/artifacts", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	router, _, _ := setup(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, true, got["ok"])
}

func TestMetricsEndpoint(t *testing.T) {
	router, _, _ := setup(t)

	// Labeled collectors only export after a first observation.
	doJSON(t, router, http.MethodGet, "/api/v1/health", nil)

	rec := doJSON(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
