package domain

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of an indexing job.
type JobStatus string

// Job states. A job moves from pending to exactly one terminal state.
const (
	JobPending   JobStatus = "pending"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// IsTerminal returns true for completed and failed.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// String returns the string representation.
func (s JobStatus) String() string {
	return string(s)
}

// FileFailure records why one file contributed nothing to a job.
type FileFailure struct {
	FileID   string
	FileName string
	Reason   string
}

// Job is one indexing run over a folder.
type Job struct {
	ID         string
	FolderID   string
	FolderName string
	Status     JobStatus

	// Files is the ordered list of allow-listed files found in the folder.
	Files []FileDescriptor

	// ChunkCount counts every chunk produced, including ones whose
	// embedding failed.
	ChunkCount int

	// EmbeddedCount counts chunks that are searchable.
	EmbeddedCount int

	// FileFailures lists files that were skipped during processing.
	FileFailures []FileFailure

	// Error is the failure reason for a failed job.
	Error string

	CreatedAt  time.Time
	FinishedAt time.Time
}

// NewJob creates a pending job.
func NewJob(id, folderID string, now time.Time) *Job {
	return &Job{
		ID:        id,
		FolderID:  folderID,
		Status:    JobPending,
		CreatedAt: now,
	}
}

// Complete moves a pending job to completed.
func (j *Job) Complete(chunkCount, embeddedCount int, now time.Time) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("complete job %s: %w", j.ID, ErrJobFinalised)
	}
	j.Status = JobCompleted
	j.ChunkCount = chunkCount
	j.EmbeddedCount = embeddedCount
	j.FinishedAt = now
	return nil
}

// Fail moves a pending job to failed with a reason.
func (j *Job) Fail(reason string, now time.Time) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("fail job %s: %w", j.ID, ErrJobFinalised)
	}
	j.Status = JobFailed
	j.Error = reason
	j.FinishedAt = now
	return nil
}

// Clone returns a deep copy so stored jobs cannot be mutated through
// a returned pointer.
func (j *Job) Clone() *Job {
	c := *j
	c.Files = append([]FileDescriptor(nil), j.Files...)
	c.FileFailures = append([]FileFailure(nil), j.FileFailures...)
	return &c
}
