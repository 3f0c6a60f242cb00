package usecase

import (
	"context"
	"fmt"

	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
	"github.com/RS-labhub/devcontainer-generator/internal/domain/repository"
)

type ArtifactUsecase interface {
	GetByJobID(ctx context.Context, jobID string) (*entity.Artifact, error)
	ListByURL(ctx context.Context, repoURL string) ([]*entity.Artifact, error)
}

type ArtifactService struct {
	artifacts repository.ArtifactRepository
}

var _ ArtifactUsecase = (*ArtifactService)(nil)

func NewArtifactService(artifacts repository.ArtifactRepository) *ArtifactService {
	return &ArtifactService{artifacts: artifacts}
}

func (s *ArtifactService) GetByJobID(ctx context.Context, jobID string) (*entity.Artifact, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job id is required")
	}
	return s.artifacts.GetByJobID(ctx, jobID)
}

func (s *ArtifactService) ListByURL(ctx context.Context, repoURL string) ([]*entity.Artifact, error) {
	if repoURL == "" {
		return nil, fmt.Errorf("repo url is required")
	}
	return s.artifacts.ListByURL(ctx, repoURL)
}
