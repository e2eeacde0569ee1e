// Package daemon hosts the long-running squeeze service: it enforces
// single-instance execution with a lock file, owns the coordinator
// lifecycle, and serves the HTTP API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"squeeze/internal/config"
	"squeeze/internal/coordinator"
	"squeeze/internal/deps"
	"squeeze/internal/history"
	"squeeze/internal/jobs"
	"squeeze/internal/logging"
)

type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	coord   *coordinator.Coordinator
	history *history.Store

	lockPath string
	lock     *flock.Flock

	api *apiServer

	// Checked once at Start and reported through Status.
	tools []deps.Status

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool   `json:"running"`
	PID            int    `json:"pid"`
	LockFilePath   string `json:"lock_file"`
	HistoryDBPath  string `json:"history_db"`
	QueuedJobs     int    `json:"queued_jobs"`
	ProcessingJobs int    `json:"processing_jobs"`
	TotalJobs      int    `json:"total_jobs"`

	Dependencies []deps.Status `json:"dependencies,omitempty"`
}

// New constructs a daemon around an already wired coordinator.
func New(cfg *config.Config, coord *coordinator.Coordinator, hist *history.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || coord == nil {
		return nil, errors.New("daemon requires config and coordinator")
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "squeezed.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		coord:    coord,
		history:  hist,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock, starts the worker pool, and brings up
// the API listener.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another squeeze daemon instance is already running")
	}

	d.tools = deps.CheckBinaries(ctx, deps.Requirements(d.cfg))
	for _, tool := range d.tools {
		if !tool.Available && !tool.Optional {
			d.logger.Warn("required tool unavailable",
				logging.String("tool", tool.Name),
				logging.String("detail", tool.Detail))
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.coord.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start coordinator: %w", err)
	}
	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			d.coord.Stop()
			cancel()
			_ = d.lock.Unlock()
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("squeeze daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("pid", os.Getpid()))
	return nil
}

// Stop drains the workers, closes the API listener, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.api != nil {
		d.api.stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.coord.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("squeeze daemon stopped")
}

// Close stops the daemon and releases the history store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.history != nil {
		return d.history.Close()
	}
	return nil
}

// APIAddr reports the bound API address, or "" before Start.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	var queued, processing int
	snaps := d.coord.GetAllJobs()
	for _, snap := range snaps {
		switch snap.Status {
		case jobs.StatusQueued:
			queued++
		case jobs.StatusProcessing:
			processing++
		}
	}
	historyPath := ""
	if d.history != nil {
		historyPath = d.history.Path()
	}
	return Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		LockFilePath:   d.lockPath,
		HistoryDBPath:  historyPath,
		QueuedJobs:     queued,
		ProcessingJobs: processing,
		TotalJobs:      len(snaps),
		Dependencies:   d.tools,
	}
}
