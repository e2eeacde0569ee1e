package plan

import "math"

// Empirically tuned rate-budget constants. The exact values bound the
// output-size accuracy downstream callers rely on; do not re-derive them.
const (
	// Fraction of the requested size actually budgeted, leaving headroom for
	// muxing overhead and rate-control variance.
	sizeSafetyFactor = 0.90

	baseReserveMB = 0.20
	minReserveMB  = 0.28
	maxReserveMB  = 8.0
	// Reserve never eats more than this share of the requested size.
	reserveTargetCap = 0.82
	// Portion of the reserve attributed to container structures; the rest is
	// safety margin.
	containerReserveFactor = 0.7

	// Fallback payload when the reserve would swallow the whole budget.
	minPayloadMB      = 0.05
	fallbackPayloadPc = 0.10

	minVideoKbps = 80

	// One megabyte is 8192 kilobits.
	kbitsPerMB = 8192
)

var durationReserveTiers = []struct {
	minSeconds float64
	bonusMB    float64
}{
	{1800, 0.14},
	{900, 0.07},
	{300, 0.035},
}

var audioKbpsTiers = []struct {
	maxTotalKbps int
	audioKbps    int
}{
	{220, 40},
	{320, 56},
	{450, 72},
	{650, 96},
}

// Audio may not exceed this share of the total budget. Tight budgets allow a
// larger share because speech intelligibility degrades faster than picture.
const (
	audioShareTight     = 0.25
	audioShareRelaxed   = 0.18
	audioShareThreshold = 450
)

// BitratePlan is the working output of the rate-budget computation for one
// encode attempt. It is consumed immediately to build encoder arguments and
// never persisted.
type BitratePlan struct {
	TotalKbps          int
	VideoKbps          int
	AudioKbps          int
	PayloadMB          float64
	ContainerReserveMB float64
	SafetyMarginMB     float64
}

// ComputeBitratePlan derives the total/video/audio budget for a target output
// size. targetSizeMB and durationSeconds must both be positive.
func ComputeBitratePlan(targetSizeMB, durationSeconds float64, ctx CodecContext, muteAudio bool) BitratePlan {
	effectiveMB := targetSizeMB * sizeSafetyFactor

	reserve := baseReserveMB + targetSizeMB*ctx.ReservePerMB + durationReserveBonus(durationSeconds)
	if reserve < minReserveMB {
		reserve = minReserveMB
	}
	if reserve > maxReserveMB {
		reserve = maxReserveMB
	}
	if sizeCap := targetSizeMB * reserveTargetCap; reserve > sizeCap {
		reserve = sizeCap
	}

	containerReserve := reserve * containerReserveFactor * ctx.ContainerShare
	safetyMargin := reserve - containerReserve

	payload := effectiveMB - reserve
	if payload <= 0 {
		payload = math.Max(minPayloadMB, targetSizeMB*fallbackPayloadPc)
		// Shrink the reserve components proportionally to fit the new split.
		remaining := effectiveMB - payload
		if remaining < 0 {
			remaining = 0
		}
		if reserve > 0 {
			ratio := remaining / reserve
			containerReserve *= ratio
			safetyMargin *= ratio
		}
	}

	totalKbps := int(math.Round(payload * kbitsPerMB / durationSeconds))
	if totalKbps < 1 {
		totalKbps = 1
	}

	audioKbps := 0
	if !muteAudio {
		audioKbps = audioBudgetKbps(totalKbps, ctx)
	}

	videoKbps := totalKbps - audioKbps
	if videoKbps < minVideoKbps {
		videoKbps = minVideoKbps
	}

	return BitratePlan{
		TotalKbps:          totalKbps,
		VideoKbps:          videoKbps,
		AudioKbps:          audioKbps,
		PayloadMB:          payload,
		ContainerReserveMB: containerReserve,
		SafetyMarginMB:     safetyMargin,
	}
}

func durationReserveBonus(durationSeconds float64) float64 {
	for _, tier := range durationReserveTiers {
		if durationSeconds >= tier.minSeconds {
			return tier.bonusMB
		}
	}
	return 0
}

func audioBudgetKbps(totalKbps int, ctx CodecContext) int {
	audio := int(math.Round(float64(ctx.AudioDefaultKbps) * 0.9))
	for _, tier := range audioKbpsTiers {
		if totalKbps < tier.maxTotalKbps {
			audio = tier.audioKbps
			break
		}
	}

	share := audioShareRelaxed
	if totalKbps < audioShareThreshold {
		share = audioShareTight
	}
	if limit := int(share * float64(totalKbps)); audio > limit {
		audio = limit
	}
	if audio < 0 {
		audio = 0
	}
	return audio
}
