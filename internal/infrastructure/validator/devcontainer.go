package validator

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed devcontainer.schema.json
var devcontainerSchemaJSON string

// Diagnostic is one actionable validation finding.
type Diagnostic struct {
	Path       string `json:"path"`
	Message    string `json:"message"`
	Rule       string `json:"rule"`
	SchemaPath string `json:"schema_path,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return fmt.Sprintf("%s (%s)", d.Message, d.Rule)
	}
	return fmt.Sprintf("%s: %s (%s)", d.Path, d.Message, d.Rule)
}

// Result is produced fresh per validation call and never shared.
type Result struct {
	Valid       bool
	Diagnostics []Diagnostic
}

// Summary renders the diagnostics as a single line for error messages.
func (r Result) Summary() string {
	if r.Valid {
		return "valid"
	}
	parts := make([]string, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, "; ")
}

// DevContainerValidator checks candidate JSON against the devcontainer
// schema. It is immutable after construction and safe for concurrent use.
type DevContainerValidator struct {
	schema *gojsonschema.Schema
}

func New() (*DevContainerValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(devcontainerSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile devcontainer schema: %w", err)
	}
	return &DevContainerValidator{schema: schema}, nil
}

// Validate never returns an error: malformed input and schema violations both
// come back as a fail result with diagnostics.
func (v *DevContainerValidator) Validate(jsonText string) Result {
	res, err := v.schema.Validate(gojsonschema.NewStringLoader(jsonText))
	if err != nil {
		return Result{
			Valid: false,
			Diagnostics: []Diagnostic{{
				Message: fmt.Sprintf("malformed JSON: %v", err),
				Rule:    "parse",
			}},
		}
	}
	if res.Valid() {
		return Result{Valid: true}
	}

	diags := make([]Diagnostic, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		diags = append(diags, Diagnostic{
			Path:       e.Field(),
			Message:    e.Description(),
			Rule:       e.Type(),
			SchemaPath: e.Context().String(),
		})
	}
	return Result{Valid: false, Diagnostics: diags}
}
