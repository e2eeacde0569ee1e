package plan

import "math"

const (
	minOptimalScale = 25
	scaleRounding   = 5
	// Auto-FPS accepts the first candidate that keeps at least this much of
	// the source resolution.
	autoFPSScaleThreshold = 70
)

// Candidate frame rates evaluated in preference order: dropping frame rate
// preserves spatial detail better than aggressive downscaling when the
// bitrate is tight.
var autoFPSCandidates = []int{30, 24, 20, 15}

// Minimum output heights keyed by video bitrate. HEVC tiers are slightly more
// lenient because the codec holds up better at low rates.
var minHeightTiersH264 = []struct {
	minVideoKbps int
	height       int
}{
	{1200, 480},
	{700, 360},
	{350, 240},
	{0, 144},
}

var minHeightTiersHEVC = []struct {
	minVideoKbps int
	height       int
}{
	{900, 480},
	{500, 360},
	{250, 240},
	{0, 144},
}

// CalculateOptimalScale returns the largest scale percent (multiple of 5 in
// [25,100]) whose pixel count the given video bitrate can feed at the codec's
// target bits-per-pixel. The result is non-increasing as videoKbps shrinks.
func CalculateOptimalScale(width, height, videoKbps, fps int, codec Codec) int {
	if width <= 0 || height <= 0 || videoKbps <= 0 || fps <= 0 {
		return maxScalePercent
	}

	targetBpp := ContextFor(codec).TargetBpp
	maxPixels := float64(videoKbps) * 1000 / (float64(fps) * targetBpp)
	sourcePixels := float64(width) * float64(height)
	if maxPixels >= sourcePixels {
		return maxScalePercent
	}

	scale := math.Sqrt(maxPixels/sourcePixels) * 100
	percent := int(scale/scaleRounding) * scaleRounding

	if floor := minOutputHeight(videoKbps, codec); height > floor {
		minPercent := int(math.Ceil(float64(floor) * 100 / float64(height)))
		minPercent = ((minPercent + scaleRounding - 1) / scaleRounding) * scaleRounding
		if percent < minPercent {
			percent = minPercent
		}
	}

	if percent < minOptimalScale {
		percent = minOptimalScale
	}
	if percent > maxScalePercent {
		percent = maxScalePercent
	}
	return percent
}

func minOutputHeight(videoKbps int, codec Codec) int {
	tiers := minHeightTiersH264
	switch codec {
	case CodecH265, CodecVP9, CodecAV1:
		tiers = minHeightTiersHEVC
	}
	for _, tier := range tiers {
		if videoKbps >= tier.minVideoKbps {
			return tier.height
		}
	}
	return tiers[len(tiers)-1].height
}

// chooseAutoFPS picks a frame rate for requests that left FPS unset: the
// first (highest) candidate whose optimal scale stays at or above 70%, or
// failing that the candidate that maximizes the optimal scale.
func chooseAutoFPS(width, height, videoKbps int, codec Codec) int {
	bestFPS := autoFPSCandidates[0]
	bestScale := -1
	for _, fps := range autoFPSCandidates {
		scale := CalculateOptimalScale(width, height, videoKbps, fps, codec)
		if scale >= autoFPSScaleThreshold {
			return fps
		}
		if scale > bestScale {
			bestScale = scale
			bestFPS = fps
		}
	}
	return bestFPS
}
