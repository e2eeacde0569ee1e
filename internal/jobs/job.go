// Package jobs holds the shared mutable record of a compression job and the
// concurrent table that owns all live records.
package jobs

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"squeeze/internal/plan"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transitions are possible except an
// explicit retry.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Retryable reports whether Retry may re-enqueue a job in this state.
func (s Status) Retryable() bool {
	return s == StatusFailed || s == StatusCancelled
}

// NewID mints a job identifier.
func NewID() string {
	return uuid.NewString()
}

// Job is the mutable shared record of one compression job. Fields are
// written by the single worker owning the job plus cancel/retry calls, so
// every access goes through the job's own mutex.
type Job struct {
	mu sync.Mutex

	ID         string
	InputPath  string
	OutputPath string

	Request plan.CompressionRequest
	Codec   plan.Codec

	RequestedScale int
	EffectiveScale int
	TargetSizeMB   float64

	TotalKbps *int
	VideoKbps *int
	AudioKbps int

	Encoder    string
	Hardware   bool
	SkipEncode bool

	status       Status
	progress     float64
	etaSeconds   float64
	errorMessage string
	finalized    bool

	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time

	process *os.Process
}

// New builds a queued job for a normalized request.
func New(req plan.CompressionRequest, inputPath string) *Job {
	return &Job{
		ID:             NewID(),
		InputPath:      inputPath,
		Request:        req,
		Codec:          req.Codec,
		RequestedScale: req.ScalePercent,
		EffectiveScale: req.ScalePercent,
		TargetSizeMB:   req.TargetSizeMB,
		status:         StatusQueued,
		CreatedAt:      time.Now(),
	}
}

// Status returns the current lifecycle state.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Progress returns the overall percent and ETA.
func (j *Job) Progress() (percent float64, etaSeconds float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress, j.etaSeconds
}

// ErrorMessage returns the failure message, empty unless failed.
func (j *Job) ErrorMessage() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errorMessage
}

// SetProgress records percent and ETA, clamping percent to [0,100].
func (j *Job) SetProgress(percent, etaSeconds float64) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	j.mu.Lock()
	j.progress = percent
	j.etaSeconds = etaSeconds
	j.mu.Unlock()
}

// MarkProcessing transitions queued → processing. It fails when the job was
// cancelled while waiting for a worker slot.
func (j *Job) MarkProcessing() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusQueued {
		return fmt.Errorf("job %s: cannot start from %s", j.ID, j.status)
	}
	j.status = StatusProcessing
	j.StartedAt = time.Now()
	return nil
}

// MarkCompleted transitions to completed and records the timestamp.
func (j *Job) MarkCompleted() {
	j.mu.Lock()
	j.status = StatusCompleted
	j.progress = 100
	j.etaSeconds = 0
	j.CompletedAt = time.Now()
	j.process = nil
	j.mu.Unlock()
}

// MarkFailed transitions to failed with the captured message.
func (j *Job) MarkFailed(message string) {
	j.mu.Lock()
	j.status = StatusFailed
	j.errorMessage = message
	j.CompletedAt = time.Now()
	j.process = nil
	j.mu.Unlock()
}

// MarkCancelled transitions to cancelled and returns the process handle, if
// any, for the caller to kill. Terminal states are left untouched.
func (j *Job) MarkCancelled() (*os.Process, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return nil, false
	}
	j.status = StatusCancelled
	j.CompletedAt = time.Now()
	proc := j.process
	j.process = nil
	return proc, true
}

// SetProcess stores the running encoder process handle.
func (j *Job) SetProcess(proc *os.Process) {
	j.mu.Lock()
	j.process = proc
	j.mu.Unlock()
}

// PlanResult carries planner and encoder selection output onto a job.
type PlanResult struct {
	Request    plan.CompressionRequest
	TotalKbps  *int
	VideoKbps  *int
	AudioKbps  int
	Encoder    string
	Hardware   bool
	OutputPath string
}

// ApplyPlan records the planning outcome. It runs under the job lock so a
// retried job can be re-planned while snapshots are being served.
func (j *Job) ApplyPlan(p PlanResult) {
	j.mu.Lock()
	j.Request = p.Request
	j.TotalKbps = p.TotalKbps
	j.VideoKbps = p.VideoKbps
	j.AudioKbps = p.AudioKbps
	j.EffectiveScale = p.Request.ScalePercent
	j.Encoder = p.Encoder
	j.Hardware = p.Hardware
	j.OutputPath = p.OutputPath
	j.mu.Unlock()
}

// ClaimFinalize marks the terminal job as finalized and reports whether the
// caller won the claim. Cancel and the owning worker can both reach the
// finalization path; exactly one of them gets true.
func (j *Job) ClaimFinalize() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finalized {
		return false
	}
	j.finalized = true
	return true
}

// SetVideoKbps replaces the planned video bitrate before a correction pass.
func (j *Job) SetVideoKbps(kbps int) {
	j.mu.Lock()
	j.VideoKbps = &kbps
	j.mu.Unlock()
}

// ClearProcess drops the handle after the process exits.
func (j *Job) ClearProcess() {
	j.mu.Lock()
	j.process = nil
	j.mu.Unlock()
}

// ResetForAttempt clears mutable per-attempt state before an overshoot
// correction pass reruns the encode.
func (j *Job) ResetForAttempt() {
	j.mu.Lock()
	j.progress = 0
	j.etaSeconds = 0
	j.errorMessage = ""
	j.process = nil
	j.mu.Unlock()
}

// ResetForRetry re-enqueues a failed or cancelled job with a fresh clone of
// the originating request.
func (j *Job) ResetForRetry() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.status.Retryable() {
		return fmt.Errorf("job %s: cannot retry from %s", j.ID, j.status)
	}
	if j.SkipEncode {
		return fmt.Errorf("job %s: nothing to retry, compression was skipped", j.ID)
	}
	if _, err := os.Stat(j.InputPath); err != nil {
		return fmt.Errorf("job %s: input no longer available: %w", j.ID, err)
	}
	j.Request = j.Request.Clone()
	j.status = StatusQueued
	j.progress = 0
	j.etaSeconds = 0
	j.errorMessage = ""
	j.finalized = false
	j.StartedAt = time.Time{}
	j.CompletedAt = time.Time{}
	j.CreatedAt = time.Now()
	j.process = nil
	return nil
}

// Snapshot is an immutable copy of the job's externally visible state.
type Snapshot struct {
	ID             string     `json:"id"`
	Status         Status     `json:"status"`
	Codec          plan.Codec `json:"codec"`
	Progress       float64    `json:"progress"`
	ETASeconds     float64    `json:"eta_seconds"`
	TargetSizeMB   float64    `json:"target_size_mb,omitempty"`
	EffectiveScale int        `json:"effective_scale"`
	VideoKbps      *int       `json:"video_kbps,omitempty"`
	AudioKbps      int        `json:"audio_kbps,omitempty"`
	Encoder        string     `json:"encoder,omitempty"`
	Hardware       bool       `json:"hardware"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      time.Time  `json:"started_at,omitzero"`
	CompletedAt    time.Time  `json:"completed_at,omitzero"`
	OutputPath     string     `json:"-"`
	InputPath      string     `json:"-"`
}

// Snapshot captures the job under its lock.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		ID:             j.ID,
		Status:         j.status,
		Codec:          j.Codec,
		Progress:       j.progress,
		ETASeconds:     j.etaSeconds,
		TargetSizeMB:   j.TargetSizeMB,
		EffectiveScale: j.EffectiveScale,
		VideoKbps:      j.VideoKbps,
		AudioKbps:      j.AudioKbps,
		Encoder:        j.Encoder,
		Hardware:       j.Hardware,
		Error:          j.errorMessage,
		CreatedAt:      j.CreatedAt,
		StartedAt:      j.StartedAt,
		CompletedAt:    j.CompletedAt,
		OutputPath:     j.OutputPath,
		InputPath:      j.InputPath,
	}
}
