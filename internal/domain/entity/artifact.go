package entity

import (
	"time"

	"github.com/google/uuid"
)

// Artifact is the persisted generation record. Records are append-only:
// regeneration inserts a new record, nothing is ever updated in place.
type Artifact struct {
	ID               string    `json:"id" bson:"id"`
	JobID            string    `json:"job_id" bson:"jobid"`
	URL              string    `json:"url" bson:"url"`
	DevContainerJSON string    `json:"devcontainer_json" bson:"devcontainer_json"`
	DevContainerURL  *string   `json:"devcontainer_url" bson:"devcontainer_url"`
	RepoContext      string    `json:"repo_context" bson:"repo_context"`
	Tokens           int       `json:"tokens" bson:"tokens"`
	Model            string    `json:"model" bson:"model"`
	Embedding        []float64 `json:"embedding,omitempty" bson:"embedding,omitempty"`
	Generated        bool      `json:"generated" bson:"generated"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
}

// NewArtifact builds a record from an accepted generation result.
func NewArtifact(jobID, repoURL, repoContext string, res *GenerationResult) *Artifact {
	return &Artifact{
		ID:               uuid.New().String(),
		JobID:            jobID,
		URL:              repoURL,
		DevContainerJSON: res.JSON,
		DevContainerURL:  res.OriginURL,
		RepoContext:      repoContext,
		Tokens:           res.Tokens,
		Model:            res.Model,
		Generated:        res.Generated,
		CreatedAt:        time.Now().UTC(),
	}
}
