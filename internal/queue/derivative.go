package queue

import (
	"context"
	"fmt"

	"github.com/sitejournal/api/internal/models"
)

// DerivativeScheduler enqueues preview generation jobs for committed photos.
type DerivativeScheduler struct {
	queue JobQueue
}

// NewDerivativeScheduler creates a scheduler backed by the given job queue.
func NewDerivativeScheduler(q JobQueue) *DerivativeScheduler {
	return &DerivativeScheduler{queue: q}
}

// EnqueueDerivative schedules preview generation for a stored photo.
func (s *DerivativeScheduler) EnqueueDerivative(ctx context.Context, photo *models.Photo) error {
	job := NewJob(JobTypePhotoDerivative, photo.UserID, &photo.ID)
	job.ContentKey = photo.ContentKey
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue derivative job: %w", err)
	}
	return nil
}
