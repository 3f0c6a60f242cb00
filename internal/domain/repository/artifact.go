package repository

import (
	"context"

	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
)

// ArtifactRepository appends generation records. No update or delete: the
// record set is an append-only history, and retry policy belongs to callers.
type ArtifactRepository interface {
	Save(ctx context.Context, artifact *entity.Artifact) (*entity.Artifact, error)
	GetByJobID(ctx context.Context, jobID string) (*entity.Artifact, error)
	ListByURL(ctx context.Context, repoURL string) ([]*entity.Artifact, error)
}
