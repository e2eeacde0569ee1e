// Package coordinator owns the job table and queue: it admits submissions,
// schedules encodes onto a bounded worker pool, runs the overshoot feedback
// loop, and sweeps stale jobs.
package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"squeeze/internal/config"
	"squeeze/internal/encoders"
	ffmpegrun "squeeze/internal/ffmpeg"
	"squeeze/internal/ffmpeg/ffprobe"
	"squeeze/internal/history"
	"squeeze/internal/jobs"
	"squeeze/internal/logging"
	"squeeze/internal/metrics"
	"squeeze/internal/notifications"
	"squeeze/internal/pipeline"
	"squeeze/internal/plan"
	"squeeze/internal/services"
)

// How often a job's progress record is refreshed from encoder callbacks.
const progressWriteInterval = 2 * time.Second

// ProbeFunc inspects a media file; swapped for a fake in tests.
type ProbeFunc func(ctx context.Context, path string) (ffprobe.Metadata, error)

// EncoderSelector picks the encoder for a codec family.
type EncoderSelector interface {
	GetBestEncoder(ctx context.Context, codec plan.Codec) string
}

// Deps bundles the coordinator's collaborators.
type Deps struct {
	Runner   ffmpegrun.Runner
	Probe    ProbeFunc
	Selector EncoderSelector
	History  *history.Store
	Metrics  *metrics.Metrics
	Notifier notifications.Service
	Logger   *slog.Logger
}

// Coordinator drives the whole compression workflow.
type Coordinator struct {
	cfg      *config.Config
	logger   *slog.Logger
	table    *jobs.Table
	pipe     *pipeline.Pipeline
	runner   ffmpegrun.Runner
	probe    ProbeFunc
	selector EncoderSelector
	history  *history.Store
	metrics  *metrics.Metrics
	notifier notifications.Service

	queue chan string

	// Per-job cancel functions for jobs currently encoding.
	cancelFns sync.Map

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New wires a coordinator. Missing optional deps fall back to noop
// implementations; Runner defaults to the real ffmpeg CLI.
func New(cfg *config.Config, deps Deps) *Coordinator {
	logger := logging.NewComponentLogger(deps.Logger, "coordinator")

	runner := deps.Runner
	if runner == nil {
		runner = ffmpegrun.NewCLI(
			ffmpegrun.WithBinary(cfg.FFmpeg.FFmpegBinary),
			ffmpegrun.WithKillGrace(cfg.KillGrace()),
		)
	}
	probe := deps.Probe
	if probe == nil {
		probe = func(ctx context.Context, path string) (ffprobe.Metadata, error) {
			ctx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout())
			defer cancel()
			return ffprobe.InspectMetadata(ctx, cfg.FFmpeg.FFprobeBinary, path)
		}
	}
	selector := deps.Selector
	if selector == nil {
		selector = encoders.NewSelector(
			encoders.NewTestEncodeProber(cfg.FFmpeg.FFmpegBinary, cfg.ProbeTimeout()),
			deps.Logger,
		)
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}

	return &Coordinator{
		cfg:      cfg,
		logger:   logger,
		table:    jobs.NewTable(),
		pipe:     pipeline.New(runner, deps.Logger),
		runner:   runner,
		probe:    probe,
		selector: selector,
		history:  deps.History,
		metrics:  m,
		notifier: notifier,
		queue:    make(chan string, cfg.Queue.MaxQueueSize),
	}
}

// Metrics exposes the collector set for the API server.
func (c *Coordinator) Metrics() *metrics.Metrics {
	return c.metrics
}

// Start launches the worker pool and the background sweep.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return services.Wrap(services.ErrValidation, "coordinator", "start", "already started", nil)
	}
	c.started = true

	ctx, c.cancel = context.WithCancel(ctx)
	workers := c.cfg.Queue.MaxConcurrentJobs
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		c.wg.Add(1)
		go c.workerLoop(ctx)
	}
	c.wg.Add(1)
	go c.sweepLoop(ctx)

	c.logger.Info("coordinator started",
		logging.Int("workers", workers),
		logging.Int("queue_capacity", c.cfg.Queue.MaxQueueSize))
	return nil
}

// Stop drains the pool: no new submissions are accepted, running encodes are
// cancelled, and all goroutines are joined.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	c.logger.Info("coordinator stopped")
}

func (c *Coordinator) workerLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-c.queue:
			job, ok := c.table.Get(jobID)
			if !ok {
				continue
			}
			// A cancel that landed while the job sat in the queue wins.
			if job.Status() != jobs.StatusQueued {
				continue
			}
			c.metrics.ActiveWorkers.Inc()
			c.processJob(ctx, job)
			c.metrics.ActiveWorkers.Dec()
			c.updateQueueDepth()
		}
	}
}

func (c *Coordinator) updateQueueDepth() {
	c.metrics.QueueDepth.Set(float64(c.table.ActiveCount()))
}
