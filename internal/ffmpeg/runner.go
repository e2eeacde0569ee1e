// Package ffmpeg executes the encoder binary for one pass, streaming parsed
// progress back to the caller and capturing stderr for failure reporting.
package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// ProgressUpdate carries one parsed progress event from the encoder's output.
type ProgressUpdate struct {
	Percent            float64
	CurrentTimeSeconds float64
	ETASeconds         float64
}

// RunSpec describes a single encoder pass.
type RunSpec struct {
	Args                 []string
	TotalDurationSeconds float64
	PassNumber           int
	TotalPasses          int
	// OnProgress receives parsed progress events, percent clamped to [0,100].
	OnProgress func(ProgressUpdate)
	// OnProcessStarted fires synchronously after launch so the caller can
	// stash a handle for cancellation.
	OnProcessStarted func(*os.Process)
}

// Result reports how a pass ended. A nonzero exit code is not an error at
// this layer; err is reserved for failure to launch or stream.
type Result struct {
	ExitCode int
	Stderr   string
}

// Runner executes one encoder pass.
type Runner interface {
	Run(ctx context.Context, spec RunSpec) (Result, error)
}

// Option configures the CLI runner.
type Option func(*CLI)

// WithBinary overrides the default ffmpeg binary.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithKillGrace bounds the wait for the OS to report exit after a kill.
func WithKillGrace(grace time.Duration) Option {
	return func(c *CLI) {
		if grace > 0 {
			c.killGrace = grace
		}
	}
}

// CLI runs ffmpeg as a subprocess in its own process group.
type CLI struct {
	binary    string
	killGrace time.Duration
}

// NewCLI constructs a runner with defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg", killGrace: 5 * time.Second}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// How much trailing stderr is kept for failure diagnostics.
const stderrTailBytes = 8 * 1024

// How often the ETA is recomputed from the instantaneous encode speed.
const etaRecomputeInterval = 2 * time.Second

// Run launches one encoder pass and blocks until it exits. Cancellation kills
// the whole process group.
func (c *CLI) Run(ctx context.Context, spec RunSpec) (Result, error) {
	if len(spec.Args) == 0 {
		return Result{}, errors.New("ffmpeg run: no arguments")
	}

	cmd := exec.CommandContext(ctx, c.binary, spec.Args...) //nolint:gosec
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return KillTree(cmd.Process, c.killGrace)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", c.binary, err)
	}
	if spec.OnProcessStarted != nil {
		spec.OnProcessStarted(cmd.Process)
	}

	tracker := newProgressTracker(spec.TotalDurationSeconds)
	var tail tailBuffer

	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	scanner.Split(scanCarriageLines)
	for scanner.Scan() {
		line := scanner.Text()
		tail.Write(line)
		if spec.OnProgress == nil {
			continue
		}
		if update, ok := tracker.Parse(line); ok {
			spec.OnProgress(update)
		}
	}

	waitErr := cmd.Wait()
	result := Result{Stderr: tail.String()}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("wait %s: %w", c.binary, waitErr)
	}
	return result, nil
}

// scanCarriageLines splits on both \n and \r since ffmpeg rewrites its
// progress line with carriage returns.
func scanCarriageLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

type tailBuffer struct {
	mu    sync.Mutex
	lines []string
	size  int
}

func (b *tailBuffer) Write(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	b.size += len(line) + 1
	for b.size > stderrTailBytes && len(b.lines) > 1 {
		b.size -= len(b.lines[0]) + 1
		b.lines = b.lines[1:]
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}
