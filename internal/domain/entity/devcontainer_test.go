package entity_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
)

func TestDevContainerMarshalOmitsUnsetFields(t *testing.T) {
	dc := entity.DevContainer{Name: "go-app"}

	data, err := json.Marshal(dc)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "go-app", m["name"])
	_, hasImage := m["image"]
	assert.False(t, hasImage, "an unset image must stay absent so validation can flag it")
}

func TestDevContainerExtraRoundTrip(t *testing.T) {
	in := `{
		"name": "web",
		"image": "node:20",
		"forwardPorts": [3000],
		"postCreateCommand": "npm ci",
		"remoteUser": "node",
		"features": {"ghcr.io/devcontainers/features/docker-in-docker:2": {}}
	}`

	var dc entity.DevContainer
	require.NoError(t, json.Unmarshal([]byte(in), &dc))

	assert.Equal(t, "web", dc.Name)
	assert.Equal(t, "node:20", dc.Image)
	assert.Equal(t, []int{3000}, dc.ForwardPorts)
	assert.Equal(t, "node", dc.Extra["remoteUser"])
	assert.Contains(t, dc.Extra, "features")

	out, err := json.Marshal(dc)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, "node", m["remoteUser"])
	assert.Contains(t, m, "features")
}

func TestDevContainerKnownKeysWinOverExtra(t *testing.T) {
	dc := entity.DevContainer{
		Name:  "real",
		Image: "img",
		Extra: map[string]any{"name": "stale"},
	}

	data, err := json.Marshal(dc)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "real", m["name"])
}

func TestExtractExistingDevContainer(t *testing.T) {
	embedded := `{"name": "existing", "image": "ubuntu:22.04"}`
	context := "repo tree\n" + entity.ExistingStart + "\n" + embedded + "\n" + entity.ExistingEnd + "\ntrailing"

	got, ok := entity.ExtractExistingDevContainer(context)

	require.True(t, ok)
	assert.Equal(t, embedded, got)
}

func TestExtractExistingDevContainerMissingEndMarker(t *testing.T) {
	got, ok := entity.ExtractExistingDevContainer(entity.ExistingStart + "\n{\"name\": \"x\"}")

	require.True(t, ok)
	assert.Equal(t, `{"name": "x"}`, got)
}

func TestExtractExistingDevContainerAbsent(t *testing.T) {
	_, ok := entity.ExtractExistingDevContainer("no markers here")

	assert.False(t, ok)
}

func TestRenderDevContainerPrompt(t *testing.T) {
	prompt, err := entity.RenderDevContainerPrompt(entity.PromptData{
		RepoURL:     "https://github.com/acme/widgets",
		RepoContext: "repo context body",
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "https://github.com/acme/widgets")
	assert.Contains(t, prompt, "repo context body")
	assert.NotContains(t, prompt, "already contains a devcontainer.json")
}

func TestRenderDevContainerPromptWithExisting(t *testing.T) {
	prompt, err := entity.RenderDevContainerPrompt(entity.PromptData{
		RepoURL:              "https://github.com/acme/widgets",
		RepoContext:          "repo context body",
		ExistingDevContainer: `{"name": "old"}`,
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "already contains a devcontainer.json")
	assert.Contains(t, prompt, `{"name": "old"}`)
}
