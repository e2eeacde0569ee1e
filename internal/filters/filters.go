// Package filters builds the ffmpeg video filter chain tuned to how hard the
// encode has to squeeze. Order matters: crop first, denoise on the full-res
// source, deband after scaling so it corrects scaler artifacts, sharpen after
// deband to compensate for softening, and the frame-rate limiter last.
package filters

import (
	"fmt"
	"math"
	"strings"

	"squeeze/internal/plan"
)

// Intensity classifies how aggressively the encode compresses, derived from
// the implied bitrate (targetSizeMB × 8192 / duration).
type Intensity int

const (
	IntensityLight Intensity = iota
	IntensityModerate
	IntensityHeavy
)

const (
	heavyImpliedKbps    = 900
	moderateImpliedKbps = 2000
	// Above this implied bitrate the expensive filters stop paying for
	// themselves when encoding for compression.
	expensiveFilterKbps = 2500

	maxSharpenAmount  = 0.9
	baseSharpenAmount = 0.3
)

// Options tunes which filters are emitted.
type Options struct {
	// ForCompression drops the expensive denoise/deband filters when the
	// bitrate budget is generous enough that they waste time, not bits.
	ForCompression bool
	// DisableAll suppresses the whole chain, e.g. for a trim-only remux.
	DisableAll bool
}

func (i Intensity) String() string {
	switch i {
	case IntensityHeavy:
		return "heavy"
	case IntensityModerate:
		return "moderate"
	default:
		return "light"
	}
}

// ImpliedKbps returns the rate the target size implies over the duration, or
// 0 when either is absent.
func ImpliedKbps(targetSizeMB, durationSeconds float64) float64 {
	if targetSizeMB <= 0 || durationSeconds <= 0 {
		return 0
	}
	return targetSizeMB * 8192 / durationSeconds
}

// ClassifyIntensity maps an implied bitrate to a compression intensity.
// An absent target classifies as light.
func ClassifyIntensity(impliedKbps float64) Intensity {
	switch {
	case impliedKbps <= 0:
		return IntensityLight
	case impliedKbps < heavyImpliedKbps:
		return IntensityHeavy
	case impliedKbps < moderateImpliedKbps:
		return IntensityModerate
	default:
		return IntensityLight
	}
}

// Build assembles the ordered filter chain for a normalized request. The
// returned string is empty when no filtering is needed.
func Build(req plan.CompressionRequest, opts Options) string {
	if opts.DisableAll {
		return ""
	}

	implied := ImpliedKbps(req.TargetSizeMB, req.DurationSeconds)
	intensity := ClassifyIntensity(implied)
	skipExpensive := opts.ForCompression && implied > expensiveFilterKbps

	var chain []string

	if req.Crop != nil {
		if crop := cropFilter(*req.Crop); crop != "" {
			chain = append(chain, crop)
		}
	}

	if !skipExpensive {
		chain = append(chain, denoiseFilter(intensity))
	}

	downscaling := req.ScalePercent < 100
	if downscaling {
		chain = append(chain, scaleFilter(req.ScalePercent))
	}

	if !skipExpensive {
		chain = append(chain, debandFilter(intensity))
	}

	if sharpen := sharpenFilter(intensity, req.ScalePercent); sharpen != "" {
		chain = append(chain, sharpen)
	}

	if req.TargetFPS != nil && *req.TargetFPS > 0 {
		chain = append(chain, fmt.Sprintf("fps=%d", *req.TargetFPS))
	}

	return strings.Join(chain, ",")
}

func cropFilter(crop plan.CropRect) string {
	width := crop.Width - crop.Width%2
	height := crop.Height - crop.Height%2
	if width < 2 {
		width = 2
	}
	if height < 2 {
		height = 2
	}
	return fmt.Sprintf("crop=%d:%d:%d:%d", width, height, crop.X, crop.Y)
}

func denoiseFilter(intensity Intensity) string {
	switch intensity {
	case IntensityHeavy:
		return "hqdn3d=3:2:4:3"
	case IntensityModerate:
		return "hqdn3d=2:1.5:3:2.5"
	default:
		return "hqdn3d=1.5:1:2:2"
	}
}

func scaleFilter(percent int) string {
	factor := float64(percent) / 100
	return fmt.Sprintf(
		"scale=trunc(iw*%.2f/2)*2:trunc(ih*%.2f/2)*2:flags=lanczos",
		factor, factor,
	)
}

func debandFilter(intensity Intensity) string {
	switch intensity {
	case IntensityHeavy:
		return "deband=1thr=0.024:2thr=0.024:3thr=0.024:range=20"
	case IntensityModerate:
		return "deband=1thr=0.016:2thr=0.016:3thr=0.016:range=16"
	default:
		return "deband=1thr=0.012:2thr=0.012:3thr=0.012:range=12"
	}
}

// sharpenFilter compensates for scaler and deband softening. The amount grows
// with the downscale but stays capped to avoid halo artifacts; heavy encodes
// with no downscaling skip it so the extra detail does not waste bits.
func sharpenFilter(intensity Intensity, scalePercent int) string {
	if intensity == IntensityHeavy && scalePercent >= 100 {
		return ""
	}
	amount := baseSharpenAmount + float64(100-scalePercent)*0.01
	amount = math.Min(maxSharpenAmount, amount)
	return fmt.Sprintf("unsharp=5:5:%.2f", amount)
}
