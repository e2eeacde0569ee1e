package coordinator

import (
	"context"
	"fmt"
	"os"
	"time"

	"squeeze/internal/filters"
	"squeeze/internal/jobs"
	"squeeze/internal/logging"
	"squeeze/internal/pipeline"
	"squeeze/internal/plan"
)

// processJob runs one job to a terminal state. Panics are confined here so a
// bad encode can never take the worker pool down.
func (c *Coordinator) processJob(ctx context.Context, job *jobs.Job) {
	defer func() {
		if r := recover(); r != nil {
			job.ClearProcess()
			job.MarkFailed(fmt.Sprintf("internal error: %v", r))
			c.finalize(ctx, job, 0)
		}
	}()

	// The cancel func is registered before the processing transition so a
	// concurrent Cancel always finds either a queued job or a live context.
	jobCtx, cancelJob := context.WithCancel(ctx)
	c.cancelFns.Store(job.ID, cancelJob)
	defer func() {
		c.cancelFns.Delete(job.ID)
		cancelJob()
	}()

	if err := job.MarkProcessing(); err != nil {
		// Cancelled while waiting for a worker slot; Cancel finalizes it.
		return
	}
	c.logger.Info("job started",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldEncoder, job.Encoder))

	started := time.Now()
	outputSize, err := c.encodeWithFeedback(jobCtx, job)
	elapsed := time.Since(started)

	switch {
	case job.Status() == jobs.StatusCancelled:
		// The cancel path already transitioned the job; the encoder exit
		// code is irrelevant here.
	case err != nil:
		job.MarkFailed(err.Error())
	default:
		job.MarkCompleted()
		c.metrics.EncodeSeconds.Observe(elapsed.Seconds())
		c.metrics.OutputSizeBytes.Observe(float64(outputSize))
		// Input is redundant once output exists; reclaim the space now.
		_ = os.Remove(job.InputPath)
	}
	c.finalize(ctx, job, outputSize)
}

// encodeWithFeedback runs the pipeline once, and once more with a corrected
// bitrate when the output overshoots the target.
func (c *Coordinator) encodeWithFeedback(ctx context.Context, job *jobs.Job) (int64, error) {
	outputSize, err := c.encodeAttempt(ctx, job)
	if err != nil {
		return 0, err
	}

	target := job.TargetSizeMB
	actualMB := float64(outputSize) / bytesPerMB
	if target <= 0 || job.VideoKbps == nil || !plan.OvershootExceeded(actualMB, target) {
		return outputSize, nil
	}

	corrected := plan.CorrectedVideoKbps(*job.VideoKbps, target, actualMB)
	c.logger.Info("output overshot target, retrying with corrected bitrate",
		logging.String(logging.FieldJobID, job.ID),
		logging.Float64("actual_mb", actualMB),
		logging.Float64("target_mb", target),
		logging.Int("corrected_kbps", corrected))
	c.metrics.OvershootRetry.Inc()

	_ = os.Remove(job.OutputPath)
	job.ResetForAttempt()
	job.SetVideoKbps(corrected)

	retrySize, retryErr := c.encodeAttempt(ctx, job)
	if retryErr != nil {
		return 0, retryErr
	}
	// Still oversized after the correction pass: best effort, the job
	// completes with the larger output.
	return retrySize, nil
}

func (c *Coordinator) encodeAttempt(ctx context.Context, job *jobs.Job) (int64, error) {
	req := job.Request
	codecCtx := plan.ContextFor(req.Codec)

	chain := filters.Build(req, filters.Options{ForCompression: true})

	spec := pipeline.EncodeSpec{
		InputPath:       job.InputPath,
		OutputPath:      job.OutputPath,
		Codec:           req.Codec,
		Encoder:         job.Encoder,
		Container:       string(codecCtx.Container),
		VideoKbps:       job.VideoKbps,
		AudioKbps:       job.AudioKbps,
		AudioCodec:      codecCtx.AudioCodec,
		MuteAudio:       req.MuteAudio,
		FilterChain:     chain,
		Params:          pipeline.ParamsFor(job.Encoder, req.Mode),
		DurationSeconds: req.DurationSeconds,
		TwoPass:         pipeline.UseTwoPass(job.Encoder, job.VideoKbps),
	}

	var lastWrite time.Time
	return c.pipe.Encode(ctx, job.ID, spec, pipeline.Callbacks{
		OnProcessStarted: job.SetProcess,
		OnProgress: func(percent, eta float64) {
			if time.Since(lastWrite) < progressWriteInterval && percent < 100 {
				return
			}
			lastWrite = time.Now()
			job.SetProgress(percent, eta)
		},
	})
}

// finalize archives the terminal job and emits metrics and notifications.
func (c *Coordinator) finalize(ctx context.Context, job *jobs.Job, outputSize int64) {
	job.ClearProcess()
	status := job.Status()
	if !status.Terminal() {
		return
	}
	if !job.ClaimFinalize() {
		return
	}
	c.metrics.JobsFinished.WithLabelValues(string(status)).Inc()
	c.archive(ctx, job, outputSize)

	switch status {
	case jobs.StatusCompleted:
		c.logger.Info("job completed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Float64("output_mb", float64(outputSize)/bytesPerMB))
		if err := c.notifier.NotifyJobCompleted(ctx, job.ID, float64(outputSize)/bytesPerMB); err != nil {
			c.logger.Warn("completion notification failed", logging.Error(err))
		}
	case jobs.StatusFailed:
		c.logger.Error("job failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.String("reason", job.ErrorMessage()))
		if err := c.notifier.NotifyJobFailed(ctx, job.ID, job.ErrorMessage()); err != nil {
			c.logger.Warn("failure notification failed", logging.Error(err))
		}
	case jobs.StatusCancelled:
		c.logger.Info("job cancelled", logging.String(logging.FieldJobID, job.ID))
	}
}

func (c *Coordinator) archive(ctx context.Context, job *jobs.Job, outputSize int64) {
	if c.history == nil {
		return
	}
	if err := c.history.Archive(ctx, job.Snapshot(), outputSize); err != nil {
		c.logger.Warn("history archive failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err))
	}
}
