package client

import (
	"time"

	"squeeze/internal/jobs"
	"squeeze/internal/plan"
)

// SubmitResponse is returned by POST /api/jobs.
type SubmitResponse struct {
	JobID string        `json:"job_id"`
	Job   jobs.Snapshot `json:"job"`
}

type jobResponse struct {
	Job jobs.Snapshot `json:"job"`
}

type jobListResponse struct {
	Jobs []jobs.Snapshot `json:"jobs"`
}

type positionResponse struct {
	JobID    string `json:"job_id"`
	Position int    `json:"position"`
}

// DaemonStatus mirrors the daemon's status payload.
type DaemonStatus struct {
	Running        bool   `json:"running"`
	PID            int    `json:"pid"`
	LockFilePath   string `json:"lock_file"`
	HistoryDBPath  string `json:"history_db"`
	QueuedJobs     int    `json:"queued_jobs"`
	ProcessingJobs int    `json:"processing_jobs"`
	TotalJobs      int    `json:"total_jobs"`

	Dependencies []ToolStatus `json:"dependencies,omitempty"`
}

// ToolStatus reports availability of one external binary.
type ToolStatus struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// HistoryEntry mirrors an archived job record.
type HistoryEntry struct {
	JobID           string      `json:"job_id"`
	Status          jobs.Status `json:"status"`
	Codec           plan.Codec  `json:"codec"`
	Encoder         string      `json:"encoder,omitempty"`
	Hardware        bool        `json:"hardware"`
	TargetSizeMB    float64     `json:"target_size_mb,omitempty"`
	OutputSizeBytes int64       `json:"output_size_bytes,omitempty"`
	VideoKbps       *int        `json:"video_kbps,omitempty"`
	AudioKbps       int         `json:"audio_kbps,omitempty"`
	EffectiveScale  int         `json:"effective_scale"`
	ErrorMessage    string      `json:"error,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	CompletedAt     time.Time   `json:"completed_at,omitzero"`
	ArchivedAt      time.Time   `json:"archived_at"`
}

type historyResponse struct {
	Entries []HistoryEntry `json:"entries"`
}
