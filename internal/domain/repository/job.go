package repository

import (
	"context"

	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
)

// JobRepository is the storage contract for generation jobs.
type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	GetByID(ctx context.Context, id string) (*entity.Job, error)
	List(ctx context.Context) ([]*entity.Job, error)
	ListByStatus(ctx context.Context, status entity.JobStatus) ([]*entity.Job, error)
	UpdateStatus(ctx context.Context, id string, status entity.JobStatus) error
	// MarkFailed sets the terminal failed status together with the summarizing
	// diagnostic shown to callers.
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, status entity.JobStatus) (int, error)
}
