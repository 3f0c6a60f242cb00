package filesystem_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
	"github.com/RS-labhub/devcontainer-generator/internal/infrastructure/store/filesystem"
)

func TestNewArtifactMirrorRejectsEmptyPath(t *testing.T) {
	_, err := filesystem.NewArtifactMirror("")
	require.Error(t, err)
}

func TestArtifactMirrorSaveAndGet(t *testing.T) {
	base := t.TempDir()
	mirror, err := filesystem.NewArtifactMirror(base)
	require.NoError(t, err)

	res := &entity.GenerationResult{
		JSON:      `{"name": "go-app", "image": "golang:1.22"}`,
		Generated: true,
		Attempts:  1,
		Tokens:    1234,
		Model:     "gpt-4o-mini",
	}
	artifact := entity.NewArtifact("job-1", "https://github.com/acme/widgets", "ctx", res)

	require.NoError(t, mirror.Save(context.Background(), artifact))

	got, err := mirror.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, res.JSON, got)

	metaRaw, err := os.ReadFile(filepath.Join(base, "job-1", "metadata.json"))
	require.NoError(t, err)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(metaRaw, &meta))
	assert.Equal(t, "job-1", meta["job_id"])
	assert.Equal(t, "https://github.com/acme/widgets", meta["url"])
	assert.Equal(t, "gpt-4o-mini", meta["model"])
	assert.Equal(t, float64(1234), meta["tokens"])
	assert.Equal(t, true, meta["generated"])
	assert.NotContains(t, meta, "repo_context", "the context is large and stays out of the mirror")
}

func TestArtifactMirrorGetMissingJob(t *testing.T) {
	mirror, err := filesystem.NewArtifactMirror(t.TempDir())
	require.NoError(t, err)

	_, err = mirror.Get(context.Background(), "absent")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestArtifactMirrorGetBasePath(t *testing.T) {
	base := t.TempDir()
	mirror, err := filesystem.NewArtifactMirror(base)
	require.NoError(t, err)

	assert.Equal(t, base, mirror.GetBasePath())
}
