package coordinator

import (
	"context"
	"time"

	"squeeze/internal/jobs"
	"squeeze/internal/logging"
)

// sweepLoop periodically removes terminal jobs past retention and
// force-cleans jobs stuck in queued or processing.
func (c *Coordinator) sweepLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.CleanupInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass and returns how many jobs were removed.
func (c *Coordinator) Sweep(ctx context.Context) int {
	now := time.Now()
	retention := c.cfg.Retention()
	staleProcessing := c.cfg.StaleProcessing()
	staleQueued := c.cfg.StaleQueued()

	removed := 0
	stale := 0
	for _, job := range c.table.All() {
		snap := job.Snapshot()
		switch snap.Status {
		case jobs.StatusCompleted, jobs.StatusFailed, jobs.StatusCancelled:
			if !snap.CompletedAt.IsZero() && now.Sub(snap.CompletedAt) > retention {
				if err := c.CleanupJob(snap.ID); err == nil {
					removed++
				}
			}
		case jobs.StatusProcessing:
			if !snap.StartedAt.IsZero() && now.Sub(snap.StartedAt) > staleProcessing {
				c.logger.Warn("force-cleaning stale processing job",
					logging.String(logging.FieldJobID, snap.ID),
					logging.Duration("age", now.Sub(snap.StartedAt)))
				if err := c.CleanupJob(snap.ID); err == nil {
					removed++
					stale++
				}
			}
		case jobs.StatusQueued:
			if now.Sub(snap.CreatedAt) > staleQueued {
				c.logger.Warn("force-cleaning stale queued job",
					logging.String(logging.FieldJobID, snap.ID),
					logging.Duration("age", now.Sub(snap.CreatedAt)))
				if err := c.CleanupJob(snap.ID); err == nil {
					removed++
					stale++
				}
			}
		}
	}

	if stale > 0 {
		c.metrics.StaleSwept.Add(float64(stale))
		if err := c.notifier.NotifyQueueStalled(ctx, stale); err != nil {
			c.logger.Warn("sweep notification failed", logging.Error(err))
		}
	}
	if removed > 0 {
		c.logger.Info("sweep removed jobs", logging.Int("count", removed))
	}
	c.updateQueueDepth()
	return removed
}
