package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// GarbageCollector periodically purges dead-lettered derivative jobs that
// outlived their retention window. Stale DLQ entries reference photos whose
// preview work is no longer worth retrying.
type GarbageCollector struct {
	dlqPurger DLQPurger
	logger    *zap.Logger
	interval  time.Duration
	retention time.Duration
}

// NewGarbageCollector creates a garbage collector. purger is typically the
// RabbitMQ queue; a nil purger makes every sweep a no-op.
func NewGarbageCollector(purger DLQPurger, logger *zap.Logger, interval, retention time.Duration) *GarbageCollector {
	return &GarbageCollector{
		dlqPurger: purger,
		logger:    logger,
		interval:  interval,
		retention: retention,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := gc.sweep(ctx); err != nil {
				gc.logger.Error("dlq_sweep_failed", zap.Error(err))
			}
		}
	}
}

// sweep purges DLQ messages older than retention.
func (gc *GarbageCollector) sweep(ctx context.Context) error {
	if gc.dlqPurger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	n, err := gc.dlqPurger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return fmt.Errorf("DLQ purge: %w", err)
	}
	if n > 0 {
		gc.logger.Info("dlq_swept",
			zap.Int("purged", n),
			zap.Duration("retention", gc.retention),
		)
	}
	return nil
}
