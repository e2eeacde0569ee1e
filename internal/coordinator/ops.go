package coordinator

import (
	"context"
	"fmt"
	"os"

	ffmpegrun "squeeze/internal/ffmpeg"
	"squeeze/internal/jobs"
	"squeeze/internal/logging"
	"squeeze/internal/services"
)

// GetJob returns a snapshot of one job.
func (c *Coordinator) GetJob(jobID string) (jobs.Snapshot, error) {
	job, ok := c.table.Get(jobID)
	if !ok {
		return jobs.Snapshot{}, services.Wrap(services.ErrNotFound, "coordinator", "get_job",
			fmt.Sprintf("job %s", jobID), nil)
	}
	return job.Snapshot(), nil
}

// GetAllJobs returns snapshots of every registered job in submission order.
func (c *Coordinator) GetAllJobs() []jobs.Snapshot {
	all := c.table.All()
	out := make([]jobs.Snapshot, 0, len(all))
	for _, job := range all {
		out = append(out, job.Snapshot())
	}
	return out
}

// GetQueuePosition returns the 1-based queue position, 0 when not queued.
func (c *Coordinator) GetQueuePosition(jobID string) int {
	return c.table.QueuePosition(jobID)
}

// Cancel transitions a job to cancelled and kills its encoder process tree.
// Returns false when the job is unknown or already terminal.
func (c *Coordinator) Cancel(jobID string) bool {
	job, ok := c.table.Get(jobID)
	if !ok {
		return false
	}
	proc, ok := job.MarkCancelled()
	if !ok {
		return false
	}

	if fn, loaded := c.cancelFns.Load(jobID); loaded {
		fn.(context.CancelFunc)()
	}
	if proc != nil {
		if err := ffmpegrun.KillTree(proc, c.cfg.KillGrace()); err != nil {
			c.logger.Warn("encoder kill failed",
				logging.String(logging.FieldJobID, jobID),
				logging.Error(err))
		}
	}

	// The worker may reach finalize for the same job; the claim inside
	// ensures the cancelled job is counted and archived exactly once.
	c.finalize(context.Background(), job, 0)
	c.updateQueueDepth()
	return true
}

// Retry re-enqueues a failed or cancelled job with a freshly computed plan.
// A correction applied during the failed run does not carry over.
func (c *Coordinator) Retry(ctx context.Context, jobID string) error {
	job, ok := c.table.Get(jobID)
	if !ok {
		return services.Wrap(services.ErrNotFound, "coordinator", "retry",
			fmt.Sprintf("job %s", jobID), nil)
	}

	if c.table.ActiveCount() >= c.cfg.Queue.MaxQueueSize {
		return services.Wrap(services.ErrCapacity, "coordinator", "retry",
			fmt.Sprintf("queue is full (%d jobs)", c.cfg.Queue.MaxQueueSize), nil)
	}
	if err := job.ResetForRetry(); err != nil {
		return services.Wrap(services.ErrValidation, "coordinator", "retry", err.Error(), nil)
	}

	meta, probeErr := c.probe(ctx, job.InputPath)
	if probeErr != nil {
		c.logger.Warn("retry probe failed, planning without dimensions",
			logging.String(logging.FieldJobID, jobID), logging.Error(probeErr))
	}
	c.planJob(ctx, job, meta.Width, meta.Height)

	select {
	case c.queue <- job.ID:
	default:
		job.MarkFailed("requeue failed: queue is full")
		return services.Wrap(services.ErrCapacity, "coordinator", "retry",
			fmt.Sprintf("queue is full (%d jobs)", c.cfg.Queue.MaxQueueSize), nil)
	}

	c.updateQueueDepth()
	c.logger.Info("job requeued", logging.String(logging.FieldJobID, jobID))
	return nil
}

// CleanupJob removes a job from the table and deletes its files. Running
// jobs are cancelled first.
func (c *Coordinator) CleanupJob(jobID string) error {
	job, ok := c.table.Get(jobID)
	if !ok {
		return services.Wrap(services.ErrNotFound, "coordinator", "cleanup",
			fmt.Sprintf("job %s", jobID), nil)
	}
	if !job.Status().Terminal() {
		c.Cancel(jobID)
	}

	c.table.Remove(jobID)
	snap := job.Snapshot()
	if snap.InputPath != "" {
		_ = os.Remove(snap.InputPath)
	}
	if snap.OutputPath != "" {
		_ = os.Remove(snap.OutputPath)
	}
	c.updateQueueDepth()
	c.logger.Info("job cleaned up", logging.String(logging.FieldJobID, jobID))
	return nil
}
