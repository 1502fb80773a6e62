package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/foldertalk/internal/logger"
	"github.com/custodia-labs/foldertalk/internal/metrics"
)

// applyRetention keeps at most MaxJobs finished jobs. The oldest are
// deleted together with their chunks and conversation. Pending jobs are
// never evicted.
func (s *IndexService) applyRetention(ctx context.Context) error {
	if s.cfg.MaxJobs == 0 {
		return nil
	}

	s.retention.Lock()
	defer s.retention.Unlock()

	jobs, err := s.stores.Jobs.List(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	var finished []string
	for _, job := range jobs {
		if job.Status.IsTerminal() {
			finished = append(finished, job.ID)
		}
	}

	excess := len(finished) - s.cfg.MaxJobs
	if excess <= 0 {
		return nil
	}

	evicted := 0
	for _, id := range finished[:excess] {
		if err := s.evict(ctx, id); err != nil {
			metrics.JobsEvicted(evicted)
			return err
		}
		evicted++
	}
	metrics.JobsEvicted(evicted)
	logger.Debug("Evicted %d finished jobs", evicted)
	return nil
}

// evict removes a job and everything derived from it. The job record goes
// last so a partial failure is retried on the next pass.
func (s *IndexService) evict(ctx context.Context, jobID string) error {
	if err := s.stores.Index.Delete(ctx, jobID); err != nil {
		return fmt.Errorf("evict job %s: delete chunks: %w", jobID, err)
	}
	if s.stores.Conversations != nil {
		if err := s.stores.Conversations.Clear(ctx, jobID); err != nil {
			return fmt.Errorf("evict job %s: clear conversation: %w", jobID, err)
		}
	}
	if err := s.stores.Jobs.Delete(ctx, jobID); err != nil {
		return fmt.Errorf("evict job %s: %w", jobID, err)
	}
	return nil
}
