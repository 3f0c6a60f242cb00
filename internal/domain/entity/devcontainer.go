package entity

import (
	"encoding/json"
	"strings"
)

// Section markers embedded in the repository context by the collector.
const (
	SectionStructureEnd = "<<END_SECTION: Repository Structure >>"
	SectionLanguagesEnd = "<<END_SECTION: Repository Languages >>"
	ExistingStart       = "<<EXISTING_DEVCONTAINER>>"
	ExistingEnd         = "<<END_EXISTING_DEVCONTAINER>>"
)

// ExtractExistingDevContainer pulls a prior devcontainer.json embedded in the
// repository context between the existing-devcontainer markers.
func ExtractExistingDevContainer(context string) (string, bool) {
	start := strings.Index(context, ExistingStart)
	if start < 0 {
		return "", false
	}
	rest := context[start+len(ExistingStart):]
	end := strings.Index(rest, ExistingEnd)
	if end < 0 {
		return strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:end]), true
}

// GenerateRequest describes one generation invocation.
type GenerateRequest struct {
	RepoURL         string  `json:"repo_url"`
	Context         string  `json:"context"`
	DevContainerURL *string `json:"devcontainer_url,omitempty"`
	Regenerate      bool    `json:"regenerate"`
	// MaxRetries < 0 means use the service default.
	MaxRetries int `json:"max_retries"`
}

// GenerationResult is the accepted outcome of a generation run.
type GenerationResult struct {
	JSON string
	// OriginURL is nil for freshly generated artifacts and carries the
	// original URL when an embedded artifact was reused.
	OriginURL *string
	Generated bool
	Attempts  int
	Tokens    int
	Model     string
}

// DevContainer is the structured artifact returned by a provider call.
// Unrecognized fields survive a round trip through Extra.
type DevContainer struct {
	Name              string
	Image             string
	ForwardPorts      []int
	Customizations    map[string]any
	Settings          map[string]any
	PostCreateCommand string
	Extra             map[string]any
}

type devContainerKnown struct {
	Name              string         `json:"name,omitempty"`
	Image             string         `json:"image,omitempty"`
	ForwardPorts      []int          `json:"forwardPorts,omitempty"`
	Customizations    map[string]any `json:"customizations,omitempty"`
	Settings          map[string]any `json:"settings,omitempty"`
	PostCreateCommand string         `json:"postCreateCommand,omitempty"`
}

var knownDevContainerKeys = map[string]struct{}{
	"name": {}, "image": {}, "forwardPorts": {}, "customizations": {},
	"settings": {}, "postCreateCommand": {},
}

// MarshalJSON emits only set fields so that a missing required field is
// visible to schema validation rather than masked by a zero value.
func (d DevContainer) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(d.Extra)+6)
	for k, v := range d.Extra {
		m[k] = v
	}
	if d.Name != "" {
		m["name"] = d.Name
	}
	if d.Image != "" {
		m["image"] = d.Image
	}
	if len(d.ForwardPorts) > 0 {
		m["forwardPorts"] = d.ForwardPorts
	}
	if len(d.Customizations) > 0 {
		m["customizations"] = d.Customizations
	}
	if len(d.Settings) > 0 {
		m["settings"] = d.Settings
	}
	if d.PostCreateCommand != "" {
		m["postCreateCommand"] = d.PostCreateCommand
	}
	return json.Marshal(m)
}

func (d *DevContainer) UnmarshalJSON(data []byte) error {
	var known devContainerKnown
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Name = known.Name
	d.Image = known.Image
	d.ForwardPorts = known.ForwardPorts
	d.Customizations = known.Customizations
	d.Settings = known.Settings
	d.PostCreateCommand = known.PostCreateCommand
	d.Extra = nil
	for k, v := range raw {
		if _, ok := knownDevContainerKeys[k]; ok {
			continue
		}
		if d.Extra == nil {
			d.Extra = make(map[string]any)
		}
		d.Extra[k] = v
	}
	return nil
}
