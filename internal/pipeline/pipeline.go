// Package pipeline turns one encode attempt into one or two encoder passes,
// handling parameter degradation on failure, pass-log cleanup, and progress
// attribution across passes.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	ffmpegrun "squeeze/internal/ffmpeg"
	"squeeze/internal/logging"
	"squeeze/internal/services"
)

const nullOutput = "/dev/null"

// Callbacks let the owning worker observe a running attempt.
type Callbacks struct {
	// OnProgress receives overall percent across all passes and a combined
	// ETA covering the remaining passes.
	OnProgress func(percent, etaSeconds float64)
	// OnProcessStarted fires for every launched pass.
	OnProcessStarted func(*os.Process)
}

// Pipeline drives the encoder runner through one job attempt.
type Pipeline struct {
	runner  ffmpegrun.Runner
	logger  *slog.Logger
	sampler *logging.ProgressSampler
}

// New builds a pipeline around the given runner.
func New(runner ffmpegrun.Runner, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		runner:  runner,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		sampler: logging.NewProgressSampler(5),
	}
}

// Encode runs the attempt and returns the output size in bytes. A nonzero
// encoder exit after all recovery attempts yields an external-tool error
// carrying the captured stderr.
func (p *Pipeline) Encode(ctx context.Context, jobID string, spec EncodeSpec, cb Callbacks) (int64, error) {
	totalPasses := 1
	if spec.TwoPass {
		totalPasses = 2
	}

	passLogPrefix := spec.OutputPath + ".passlog"
	defer cleanupPassLogs(passLogPrefix)

	level := degradeNone
	for pass := 1; pass <= totalPasses; pass++ {
		var err error
		level, err = p.runPassWithRecovery(ctx, jobID, spec, cb, level, pass, totalPasses, passLogPrefix)
		if err != nil {
			return 0, err
		}
	}

	info, err := os.Stat(spec.OutputPath)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "pipeline", "stat_output",
			"encoder exited cleanly but produced no output", err)
	}
	return info.Size(), nil
}

// runPassWithRecovery executes one pass, walking the degradation protocol on
// failure: cap unsafe tunables and retry, then drop the tunable block and
// retry, then give up. The reached level sticks for later passes so both
// passes of a two-pass encode use the same tunables.
func (p *Pipeline) runPassWithRecovery(ctx context.Context, jobID string, spec EncodeSpec, cb Callbacks, level degradeLevel, pass, totalPasses int, passLogPrefix string) (degradeLevel, error) {
	var lastStderr string
	for ; level <= degradeDropped; level++ {
		if level == degradeCapped && !paramsCappable(spec) {
			continue
		}
		if level == degradeDropped && (spec.Params == nil || spec.Params.Len() == 0) {
			// Nothing to drop; retrying identical arguments is pointless.
			continue
		}
		if level > degradeNone {
			p.logger.Warn("pass failed, retrying with degraded parameters",
				logging.String(logging.FieldJobID, jobID),
				logging.Int(logging.FieldPass, pass),
				logging.String("degrade", degradeName(level)))
		}

		result, err := p.runPass(ctx, jobID, spec, cb, level, pass, totalPasses, passLogPrefix)
		if err != nil {
			return level, err
		}
		if result.ExitCode == 0 {
			return level, nil
		}
		lastStderr = result.Stderr
		if ctx.Err() != nil {
			return level, services.Wrap(services.ErrTimeout, "pipeline", "encode_pass",
				fmt.Sprintf("pass %d interrupted", pass), ctx.Err())
		}
	}
	return level, services.Wrap(services.ErrExternalTool, "pipeline", "encode_pass",
		fmt.Sprintf("pass %d failed after parameter degradation: %s", pass, tailOf(lastStderr)), nil)
}

func (p *Pipeline) runPass(ctx context.Context, jobID string, spec EncodeSpec, cb Callbacks, level degradeLevel, pass, totalPasses int, passLogPrefix string) (ffmpegrun.Result, error) {
	args := buildPassArgs(spec, level, pass, totalPasses, passLogPrefix)

	attribution := passAttribution{pass: pass, total: totalPasses}
	return p.runner.Run(ctx, ffmpegrun.RunSpec{
		Args:                 args,
		TotalDurationSeconds: spec.DurationSeconds,
		PassNumber:           pass,
		TotalPasses:          totalPasses,
		OnProcessStarted: func(proc *os.Process) {
			p.logger.Debug("encoder pass started",
				logging.String(logging.FieldJobID, jobID),
				logging.Int(logging.FieldPass, pass),
				logging.Int("total_passes", totalPasses))
			if cb.OnProcessStarted != nil {
				cb.OnProcessStarted(proc)
			}
		},
		OnProgress: func(u ffmpegrun.ProgressUpdate) {
			overall, eta := attribution.apply(u, spec.DurationSeconds)
			if p.sampler.ShouldLog(overall, "encode") {
				p.logger.Debug("encode progress",
					logging.String(logging.FieldJobID, jobID),
					logging.Int(logging.FieldPass, pass),
					logging.Float64(logging.FieldPercent, overall))
			}
			if cb.OnProgress != nil {
				cb.OnProgress(overall, eta)
			}
		},
	})
}

// passAttribution maps per-pass progress onto the whole attempt.
type passAttribution struct {
	pass  int
	total int
}

// apply folds a per-pass update into overall percent and combined ETA. The
// ETA adds a full estimated pass duration for every pass still to come.
func (a passAttribution) apply(u ffmpegrun.ProgressUpdate, totalDuration float64) (percent, eta float64) {
	percent = float64(a.pass-1)*100/float64(a.total) + u.Percent/float64(a.total)
	if percent > 100 {
		percent = 100
	}

	eta = u.ETASeconds
	remaining := a.total - a.pass
	if remaining > 0 && totalDuration > 0 && u.CurrentTimeSeconds > 0 {
		// Wall estimate for a full pass, scaled from the remaining-time
		// estimate of the current one.
		fraction := (totalDuration - u.CurrentTimeSeconds) / totalDuration
		if fraction > 0 {
			fullPass := u.ETASeconds / fraction
			eta += float64(remaining) * fullPass
		}
	}
	return percent, eta
}

func paramsCappable(spec EncodeSpec) bool {
	if spec.Params == nil || spec.Params.Len() == 0 {
		return false
	}
	return spec.Params.Clone().CapUnsafe()
}

func degradeName(level degradeLevel) string {
	switch level {
	case degradeCapped:
		return "capped"
	case degradeDropped:
		return "dropped"
	}
	return "none"
}

// cleanupPassLogs removes the pass-log files the encoder leaves behind,
// whatever the attempt's outcome.
func cleanupPassLogs(prefix string) {
	matches, err := filepath.Glob(prefix + "*")
	if err != nil {
		return
	}
	for _, match := range matches {
		_ = os.Remove(match)
	}
}

func tailOf(stderr string) string {
	const max = 512
	if len(stderr) <= max {
		return stderr
	}
	return "..." + stderr[len(stderr)-max:]
}
