package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
)

const (
	devcontainerFile = "devcontainer.json"
	metadataFile     = "metadata.json"
)

// ArtifactMirror writes accepted artifacts to disk next to the primary
// store, one directory per job. The devcontainer.json is written verbatim so
// it can be dropped into a repository as-is; the rest of the record goes to
// metadata.json.
type ArtifactMirror struct {
	basePath string
}

func NewArtifactMirror(basePath string) (*ArtifactMirror, error) {
	if basePath == "" {
		return nil, fmt.Errorf("artifact mirror base path is empty")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &ArtifactMirror{basePath: basePath}, nil
}

func (m *ArtifactMirror) Save(_ context.Context, artifact *entity.Artifact) error {
	dir := filepath.Join(m.basePath, artifact.JobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create job dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, devcontainerFile), []byte(artifact.DevContainerJSON), 0o644); err != nil {
		return fmt.Errorf("write devcontainer.json: %w", err)
	}

	meta := struct {
		ID              string  `json:"id"`
		JobID           string  `json:"job_id"`
		URL             string  `json:"url"`
		DevContainerURL *string `json:"devcontainer_url,omitempty"`
		Tokens          int     `json:"tokens"`
		Model           string  `json:"model"`
		Generated       bool    `json:"generated"`
		CreatedAt       string  `json:"created_at"`
	}{
		ID:              artifact.ID,
		JobID:           artifact.JobID,
		URL:             artifact.URL,
		DevContainerURL: artifact.DevContainerURL,
		Tokens:          artifact.Tokens,
		Model:           artifact.Model,
		Generated:       artifact.Generated,
		CreatedAt:       artifact.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), data, 0o644); err != nil {
		return fmt.Errorf("write metadata.json: %w", err)
	}
	return nil
}

// Get reads a mirrored devcontainer.json back. Missing jobs return
// os.ErrNotExist wrapped.
func (m *ArtifactMirror) Get(_ context.Context, jobID string) (string, error) {
	data, err := os.ReadFile(filepath.Join(m.basePath, jobID, devcontainerFile))
	if err != nil {
		return "", fmt.Errorf("read devcontainer.json: %w", err)
	}
	return string(data), nil
}

func (m *ArtifactMirror) GetBasePath() string {
	return m.basePath
}
