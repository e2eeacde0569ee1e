// Package encoders detects which ffmpeg encoders actually work on the
// current machine and picks the best one for a codec family.
//
// An encoder compiled into ffmpeg can still fail at runtime when the driver
// or hardware is missing, so detection runs a short synthetic encode instead
// of trusting `-encoders` output.
package encoders

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Prober reports whether a named encoder can produce output on this machine.
type Prober interface {
	Probe(ctx context.Context, encoder string) bool
}

// Substrings in ffmpeg stderr that identify a runtime-unavailable encoder
// even before the exit code is considered.
var unavailableMarkers = []string{
	"not available",
	"cannot load",
	"no nvenc",
	"device creation failed",
	"driver does not support",
}

const defaultProbeTimeout = 15 * time.Second

// TestEncodeProber validates an encoder by encoding a few frames of a
// synthetic test pattern and discarding the output.
type TestEncodeProber struct {
	Binary  string
	Timeout time.Duration
}

// NewTestEncodeProber constructs a prober for the given ffmpeg binary.
// An empty binary falls back to "ffmpeg" on PATH.
func NewTestEncodeProber(binary string, timeout time.Duration) *TestEncodeProber {
	if binary == "" {
		binary = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &TestEncodeProber{Binary: binary, Timeout: timeout}
}

// Probe runs the test encode. A timeout kills the process and counts as
// unavailable; driver stalls must never block the caller.
func (p *TestEncodeProber) Probe(ctx context.Context, encoder string) bool {
	if encoder == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Binary,
		"-hide_banner", "-v", "error",
		"-f", "lavfi", "-i", "testsrc=duration=1:size=320x240:rate=30",
		"-frames:v", "8",
		"-c:v", encoder,
		"-f", "null", "-",
	)
	output, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		return false
	}
	lower := strings.ToLower(string(output))
	for _, marker := range unavailableMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}
