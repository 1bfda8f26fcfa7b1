// Package workers contains the background job processors consumed from the
// job queue.
package workers

import (
	"context"
	"fmt"
	"log"

	"github.com/sitejournal/api/internal/media"
	"github.com/sitejournal/api/internal/queue"
)

// BlobStore is the storage surface the derivative worker needs.
type BlobStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// DerivativeGenerator processes photo derivative jobs: it downloads the
// stored original and writes a reduced preview next to it.
type DerivativeGenerator struct {
	blobs BlobStore
}

// NewDerivativeGenerator creates a new derivative generator
func NewDerivativeGenerator(blobs BlobStore) *DerivativeGenerator {
	return &DerivativeGenerator{blobs: blobs}
}

// PreviewKey returns the storage key of the preview for an original.
func PreviewKey(contentKey string) string {
	return contentKey + ".preview.jpg"
}

// ProcessPhotoDerivativeJob generates and stores the preview for one photo.
// Re-running the job overwrites the previous preview, so retries are safe.
func (g *DerivativeGenerator) ProcessPhotoDerivativeJob(ctx context.Context, job *queue.Job) error {
	if job.ContentKey == "" {
		return fmt.Errorf("content_key is required for photo derivative job")
	}

	original, err := g.blobs.Download(ctx, job.ContentKey)
	if err != nil {
		return fmt.Errorf("failed to download original: %w", err)
	}

	preview, err := media.Preview(original, media.PreviewMaxDim)
	if err != nil {
		return fmt.Errorf("failed to generate preview: %w", err)
	}

	if _, err := g.blobs.Upload(ctx, PreviewKey(job.ContentKey), preview, "image/jpeg"); err != nil {
		return fmt.Errorf("failed to upload preview: %w", err)
	}

	log.Printf("Generated preview for photo %v (%d -> %d bytes)", job.PhotoID, len(original), len(preview))
	return nil
}

// ProcessJob processes a job based on its type
func (g *DerivativeGenerator) ProcessJob(ctx context.Context, msg *queue.Message) error {
	job := msg.Job

	if !job.ShouldProcess() {
		log.Printf("Job %s not ready yet (NotBefore: %v), skipping", job.ID, job.NotBefore)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job for later processing: %v", ackErr)
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypePhotoDerivative:
		if err := g.ProcessPhotoDerivativeJob(ctx, job); err != nil {
			return g.handleJobError(msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			log.Printf("Failed to nack unknown job type: %v", nackErr)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError retries failed jobs until MaxRetries, then dead-letters them.
func (g *DerivativeGenerator) handleJobError(msg *queue.Message, job *queue.Job, err error) error {
	if job.CanRetry() {
		job.IncrementRetry()
		log.Printf("Derivative job %s failed (attempt %d/%d): %v, will retry", job.ID, job.RetryCount, job.MaxRetries, err)
		if nackErr := msg.Nack(true); nackErr != nil {
			log.Printf("Failed to nack job: %v", nackErr)
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	log.Printf("Derivative job %s failed after %d retries: %v, sending to DLQ", job.ID, job.MaxRetries, err)
	if nackErr := msg.Nack(false); nackErr != nil {
		log.Printf("Failed to nack job to DLQ: %v", nackErr)
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}
