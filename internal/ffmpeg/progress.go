package ffmpeg

import (
	"regexp"
	"strconv"
	"time"
)

var timePattern = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2})(?:\.(\d+))?`)

// progressTracker converts ffmpeg's time= progress lines into percent and
// ETA figures. ETA is recomputed from the observed encode speed at most once
// per etaRecomputeInterval and held steady between recomputes.
type progressTracker struct {
	totalSeconds float64
	startedAt    time.Time
	lastETAAt    time.Time
	lastETA      float64
	now          func() time.Time
}

func newProgressTracker(totalSeconds float64) *progressTracker {
	t := &progressTracker{totalSeconds: totalSeconds, now: time.Now}
	t.startedAt = t.now()
	return t
}

// Parse extracts a progress update from one output line. The boolean is false
// when the line carries no timestamp.
func (t *progressTracker) Parse(line string) (ProgressUpdate, bool) {
	current, ok := parseTimestamp(line)
	if !ok {
		return ProgressUpdate{}, false
	}

	update := ProgressUpdate{CurrentTimeSeconds: current}
	if t.totalSeconds > 0 {
		pct := current / t.totalSeconds * 100
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		update.Percent = pct
		update.ETASeconds = t.eta(current)
	}
	return update, true
}

func (t *progressTracker) eta(current float64) float64 {
	now := t.now()
	if !t.lastETAAt.IsZero() && now.Sub(t.lastETAAt) < etaRecomputeInterval {
		return t.lastETA
	}
	elapsed := now.Sub(t.startedAt).Seconds()
	if elapsed <= 0 || current <= 0 {
		return 0
	}
	speed := current / elapsed
	remaining := t.totalSeconds - current
	if remaining < 0 {
		remaining = 0
	}
	t.lastETA = remaining / speed
	t.lastETAAt = now
	return t.lastETA
}

func parseTimestamp(line string) (float64, bool) {
	m := timePattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	total := float64(hours*3600 + minutes*60 + seconds)
	if m[4] != "" {
		frac, err := strconv.ParseFloat("0."+m[4], 64)
		if err == nil {
			total += frac
		}
	}
	return total, true
}
