package coordinator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"squeeze/internal/jobs"
	"squeeze/internal/logging"
	"squeeze/internal/plan"
	"squeeze/internal/services"
)

// Tolerance when comparing the target size against the source: a target
// within 0.01 MB of the source gains nothing from re-encoding.
const skipToleranceMB = 0.01

const bytesPerMB = 1024 * 1024

// Submit validates and admits one compression request. The upload is saved,
// trim segments are applied, and either the file is passed through untouched
// (skip path, completes synchronously) or a planned job is enqueued. The
// returned job ID is valid either way.
func (c *Coordinator) Submit(ctx context.Context, upload io.Reader, filename string, req plan.CompressionRequest) (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", services.Wrap(services.ErrValidation, "coordinator", "submit", "coordinator is shutting down", nil)
	}
	c.mu.Unlock()

	normalized := plan.Normalize(req)

	inputPath, err := c.saveUpload(upload, filename)
	if err != nil {
		return "", err
	}

	meta, probeErr := c.probe(ctx, inputPath)
	if probeErr != nil {
		c.logger.Warn("source probe failed, planning without dimensions", logging.Error(probeErr))
	}
	if normalized.DurationSeconds <= 0 && meta.DurationSeconds > 0 {
		normalized.DurationSeconds = meta.DurationSeconds
	}
	normalized.Segments = plan.NormalizeSegments(normalized.Segments, normalized.DurationSeconds)

	inputPath, trimmed, err := c.applySegments(ctx, inputPath, normalized)
	if err != nil {
		return "", err
	}
	if trimmed {
		normalized.DurationSeconds = plan.SegmentsDuration(normalized.Segments)
		normalized.Segments = nil
	}

	effectiveMB := fileSizeMB(inputPath)

	if c.shouldSkip(normalized, effectiveMB) {
		return c.completeSkipped(ctx, normalized, inputPath)
	}

	// Admission control: reject before creating anything.
	if c.table.ActiveCount() >= c.cfg.Queue.MaxQueueSize {
		_ = os.Remove(inputPath)
		c.metrics.JobsRejected.Inc()
		return "", services.Wrap(services.ErrCapacity, "coordinator", "submit",
			fmt.Sprintf("queue is full (%d jobs)", c.cfg.Queue.MaxQueueSize), nil)
	}

	job := jobs.New(normalized, inputPath)
	c.planJob(ctx, job, meta.Width, meta.Height)

	c.table.Insert(job)
	select {
	case c.queue <- job.ID:
	default:
		// The channel is sized to MaxQueueSize, so this only races with the
		// admission check above; treat it the same way.
		c.table.Remove(job.ID)
		_ = os.Remove(inputPath)
		c.metrics.JobsRejected.Inc()
		return "", services.Wrap(services.ErrCapacity, "coordinator", "submit",
			fmt.Sprintf("queue is full (%d jobs)", c.cfg.Queue.MaxQueueSize), nil)
	}

	c.metrics.JobsSubmitted.Inc()
	c.updateQueueDepth()
	c.logger.Info("job enqueued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldCodec, string(job.Codec)),
		logging.Float64("target_size_mb", job.TargetSizeMB))
	return job.ID, nil
}

// planJob runs the planner and encoder selection, recording the results on
// the job. Retry calls it with a live job, so the writes go through ApplyPlan.
func (c *Coordinator) planJob(ctx context.Context, job *jobs.Job, srcWidth, srcHeight int) {
	req := job.Request.Clone()
	codecCtx := plan.ContextFor(req.Codec)
	p := plan.BuildPlan(job.ID, req, codecCtx, srcWidth, srcHeight)

	encoder := c.selector.GetBestEncoder(ctx, p.Request.Codec)
	job.ApplyPlan(jobs.PlanResult{
		Request:   p.Request,
		TotalKbps: p.TotalKbps,
		VideoKbps: p.VideoKbps,
		AudioKbps: p.AudioKbps,
		Encoder:   encoder,
		Hardware:  !isSoftwareEncoder(encoder),
		OutputPath: filepath.Join(c.cfg.Paths.OutputDir,
			fmt.Sprintf("%s.%s", job.ID, codecCtx.Container)),
	})
}

func (c *Coordinator) shouldSkip(req plan.CompressionRequest, effectiveMB float64) bool {
	if req.MuteAudio {
		// Muting still requires a remux pass.
		return false
	}
	if req.SkipCompression {
		return true
	}
	return req.HasTarget() && req.TargetSizeMB >= effectiveMB-skipToleranceMB
}

// completeSkipped copies the (possibly trimmed) file straight to the output
// directory and records a synchronously completed job.
func (c *Coordinator) completeSkipped(ctx context.Context, req plan.CompressionRequest, inputPath string) (string, error) {
	job := jobs.New(req, inputPath)
	job.SkipEncode = true
	job.OutputPath = filepath.Join(c.cfg.Paths.OutputDir,
		job.ID+filepath.Ext(inputPath))

	if err := copyFile(inputPath, job.OutputPath); err != nil {
		return "", services.Wrap(services.ErrTransient, "coordinator", "skip_copy",
			"copy source to output", err)
	}
	size := fileSizeMB(job.OutputPath)
	_ = os.Remove(inputPath)

	_ = job.MarkProcessing()
	job.MarkCompleted()
	c.table.Insert(job)
	c.archive(ctx, job, int64(size*bytesPerMB))

	c.metrics.JobsSubmitted.Inc()
	c.metrics.JobsFinished.WithLabelValues(string(jobs.StatusCompleted)).Inc()
	c.logger.Info("job completed without re-encode",
		logging.String(logging.FieldJobID, job.ID))
	return job.ID, nil
}

func (c *Coordinator) saveUpload(upload io.Reader, filename string) (string, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".mp4"
	}
	path := filepath.Join(c.cfg.Paths.UploadDir, jobs.NewID()+ext)

	out, err := os.Create(path)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "coordinator", "save_upload",
			"create upload file", err)
	}
	if _, err := io.Copy(out, upload); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return "", services.Wrap(services.ErrTransient, "coordinator", "save_upload",
			"write upload file", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return "", services.Wrap(services.ErrTransient, "coordinator", "save_upload",
			"close upload file", err)
	}
	return path, nil
}

func fileSizeMB(path string) float64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return float64(info.Size()) / bytesPerMB
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}

func isSoftwareEncoder(name string) bool {
	return len(name) >= 3 && name[:3] == "lib"
}
