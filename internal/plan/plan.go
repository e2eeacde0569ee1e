package plan

import "math"

// Overshoot feedback constants. Open-loop bitrate prediction is approximate
// (container overhead, scene complexity), so one closed-loop correction pass
// bounds the error. The values are tuned; treat them as configuration.
const (
	overshootAdjust    = 0.92
	overshootTolerance = 1.05
	overshootDamping   = 0.98
	retryMinVideoKbps  = 60
)

// CompressionPlan is the planner's output for one encode attempt: the job's
// normalized request snapshot plus the derived bitrate budget. TotalKbps and
// VideoKbps are nil when the request carries no size target (CRF-style
// encoding is expected downstream).
type CompressionPlan struct {
	JobID     string
	Request   CompressionRequest
	TotalKbps *int
	VideoKbps *int
	AudioKbps int
	Bitrate   *BitratePlan
}

// BuildPlan computes the bitrate budget and optimal resolution scale for a
// normalized request. Source dimensions may be zero when probing failed; the
// plan then skips scale optimization. The returned plan owns a deep clone of
// the request.
func BuildPlan(jobID string, req CompressionRequest, ctx CodecContext, sourceWidth, sourceHeight int) CompressionPlan {
	snapshot := req.Clone()
	out := CompressionPlan{JobID: jobID, Request: snapshot}

	if !snapshot.HasTarget() {
		return out
	}

	bitrate := ComputeBitratePlan(snapshot.TargetSizeMB, snapshot.DurationSeconds, ctx, snapshot.MuteAudio)
	out.Bitrate = &bitrate
	out.TotalKbps = intPtr(bitrate.TotalKbps)
	out.VideoKbps = intPtr(bitrate.VideoKbps)
	out.AudioKbps = bitrate.AudioKbps

	if snapshot.TargetFPS == nil && sourceWidth > 0 && sourceHeight > 0 {
		fps := chooseAutoFPS(sourceWidth, sourceHeight, bitrate.VideoKbps, snapshot.Codec)
		snapshot.TargetFPS = &fps
	}

	if sourceWidth > 0 && sourceHeight > 0 {
		optimal := CalculateOptimalScale(sourceWidth, sourceHeight, bitrate.VideoKbps, snapshot.EffectiveFPS(), snapshot.Codec)
		// Never auto-upscale past what the client asked for.
		if optimal < snapshot.ScalePercent {
			snapshot.ScalePercent = optimal
		}
	}

	out.Request = snapshot
	return out
}

// OvershootExceeded reports whether an actual output size missed the target by
// more than the tolerated margin over the safety-adjusted target.
func OvershootExceeded(actualSizeMB, targetSizeMB float64) bool {
	if actualSizeMB <= 0 || targetSizeMB <= 0 {
		return false
	}
	return actualSizeMB/targetSizeMB*overshootAdjust > overshootTolerance
}

// CorrectedVideoKbps recomputes the video bitrate for the feedback retry after
// an overshoot, scaling the previous rate by the observed size error with a
// small damping factor.
func CorrectedVideoKbps(previousKbps int, targetSizeMB, actualSizeMB float64) int {
	if previousKbps <= 0 || targetSizeMB <= 0 || actualSizeMB <= 0 {
		return retryMinVideoKbps
	}
	corrected := float64(previousKbps) * (targetSizeMB * overshootAdjust / actualSizeMB) * overshootDamping
	kbps := int(math.Round(corrected))
	if kbps < retryMinVideoKbps {
		kbps = retryMinVideoKbps
	}
	return kbps
}

func intPtr(v int) *int {
	return &v
}
