package entity

import (
	"strings"
	"text/template"
)

// SystemInstruction is sent with every generation call. The wording matters:
// some models drop closing braces on long structured outputs unless told not to.
const SystemInstruction = "You are a helpful assistant that generates valid, complete devcontainer.json files. Ensure all JSON is properly closed with matching braces."

const devcontainerPromptText = `Generate a devcontainer.json file for the repository at {{.RepoURL}}.

Base the configuration on the repository structure and languages below. Pick a
base image that matches the primary language and toolchain, forward ports the
project is known to use, and add a postCreateCommand that installs
dependencies when the repository has a standard manifest.

{{.RepoContext}}
{{- if .ExistingDevContainer}}

The repository already contains a devcontainer.json. Treat it as a hint and
produce an improved, complete configuration:

{{.ExistingDevContainer}}
{{- end}}`

var devcontainerPromptTmpl = template.Must(template.New("devcontainer").Parse(devcontainerPromptText))

// PromptData feeds the devcontainer prompt template. RepoContext must already
// be truncated to the token budget.
type PromptData struct {
	RepoURL              string
	RepoContext          string
	ExistingDevContainer string
}

func RenderDevContainerPrompt(data PromptData) (string, error) {
	var sb strings.Builder
	if err := devcontainerPromptTmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
