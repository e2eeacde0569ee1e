package plan

import "strings"

// Mode selects the speed/quality trade-off requested by the client.
type Mode string

const (
	ModeFast    Mode = "fast"
	ModeQuality Mode = "quality"
	ModeUltra   Mode = "ultra"
)

// Codec identifies the target video codec family.
type Codec string

const (
	CodecH264 Codec = "h264"
	CodecH265 Codec = "h265"
	CodecVP9  Codec = "vp9"
	CodecAV1  Codec = "av1"
)

const (
	minScalePercent = 10
	maxScalePercent = 100
	minFPS          = 1
	maxFPS          = 240
	defaultFPS      = 30
)

// CropRect describes a crop region in source pixels.
type CropRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CompressionRequest captures the client's intent for one job. A request is
// normalized exactly once at submission; downstream code only sees the
// normalized form.
type CompressionRequest struct {
	Mode            Mode           `json:"mode"`
	Codec           Codec          `json:"codec"`
	TargetSizeMB    float64        `json:"target_size_mb"`
	DurationSeconds float64        `json:"duration_seconds"`
	ScalePercent    int            `json:"scale_percent"`
	TargetFPS       *int           `json:"target_fps"`
	MuteAudio       bool           `json:"mute_audio"`
	SkipCompression bool           `json:"skip_compression"`
	Crop            *CropRect      `json:"crop"`
	Segments        []VideoSegment `json:"segments"`
}

// Clone returns a deep copy so plans and retries never alias caller state.
func (r CompressionRequest) Clone() CompressionRequest {
	out := r
	if r.TargetFPS != nil {
		fps := *r.TargetFPS
		out.TargetFPS = &fps
	}
	if r.Crop != nil {
		crop := *r.Crop
		out.Crop = &crop
	}
	if len(r.Segments) > 0 {
		out.Segments = append([]VideoSegment(nil), r.Segments...)
	}
	return out
}

// HasTarget reports whether the request carries enough information to compute
// a bitrate budget.
func (r CompressionRequest) HasTarget() bool {
	return r.TargetSizeMB > 0 && r.DurationSeconds > 0
}

// Normalize clamps all fields into their valid ranges, resolves the codec from
// the requested mode, and canonicalizes trim segments. Normalizing an already
// normalized request is a no-op.
func Normalize(r CompressionRequest) CompressionRequest {
	out := r.Clone()

	switch Mode(strings.ToLower(strings.TrimSpace(string(out.Mode)))) {
	case ModeQuality:
		out.Mode = ModeQuality
	case ModeUltra:
		out.Mode = ModeUltra
	default:
		out.Mode = ModeFast
	}
	if out.Mode == ModeQuality {
		out.Codec = CodecH265
	} else {
		out.Codec = CodecH264
	}

	if out.TargetSizeMB <= 0 {
		out.TargetSizeMB = 0
	}
	if out.DurationSeconds <= 0 {
		out.DurationSeconds = 0
	}

	// Zero means "unset"; the caller did not ask for downscaling.
	if out.ScalePercent <= 0 {
		out.ScalePercent = maxScalePercent
	} else if out.ScalePercent < minScalePercent {
		out.ScalePercent = minScalePercent
	} else if out.ScalePercent > maxScalePercent {
		out.ScalePercent = maxScalePercent
	}

	// A nil FPS stays nil so the planner can pick one automatically.
	if out.TargetFPS != nil {
		fps := *out.TargetFPS
		if fps < minFPS {
			fps = minFPS
		} else if fps > maxFPS {
			fps = maxFPS
		}
		out.TargetFPS = &fps
	}

	out.Segments = NormalizeSegments(out.Segments, out.DurationSeconds)
	return out
}

// EffectiveFPS returns the frame rate used for planning math when the request
// does not pin one.
func (r CompressionRequest) EffectiveFPS() int {
	if r.TargetFPS != nil && *r.TargetFPS > 0 {
		return *r.TargetFPS
	}
	return defaultFPS
}
