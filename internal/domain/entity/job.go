package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Job is one queued generation request. All per-request state lives on the
// job itself; nothing is shared between jobs.
type Job struct {
	ID              string    `json:"id" bson:"id"`
	RepoURL         string    `json:"repo_url" bson:"repo_url"`
	Context         string    `json:"context" bson:"context"`
	DevContainerURL *string   `json:"devcontainer_url,omitempty" bson:"devcontainer_url,omitempty"`
	Regenerate      bool      `json:"regenerate" bson:"regenerate"`
	MaxRetries      int       `json:"max_retries" bson:"max_retries"`
	Status          JobStatus `json:"status" bson:"status"`
	Error           string    `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

func NewJob(repoURL, context string, devcontainerURL *string, regenerate bool, maxRetries int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:              uuid.New().String(),
		RepoURL:         repoURL,
		Context:         context,
		DevContainerURL: devcontainerURL,
		Regenerate:      regenerate,
		MaxRetries:      maxRetries,
		Status:          JobStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (j *Job) UpdateStatus(status JobStatus) {
	j.Status = status
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCanceled:
		return true
	}
	return false
}
