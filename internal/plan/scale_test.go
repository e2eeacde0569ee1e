package plan_test

import (
	"testing"

	"squeeze/internal/plan"
)

func TestCalculateOptimalScaleAmpleBudget(t *testing.T) {
	// 1080p30 at 0.095 bpp needs about 5.9 Mbps; anything above keeps 100%.
	if got := plan.CalculateOptimalScale(1920, 1080, 6000, 30, plan.CodecH264); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
}

func TestCalculateOptimalScaleKnownValues(t *testing.T) {
	cases := []struct {
		name      string
		videoKbps int
		codec     plan.Codec
		want      int
	}{
		{"h264 977kbps 1080p30", 977, plan.CodecH264, 40},
		{"h264 80kbps 1080p30 hits clamp", 80, plan.CodecH264, 25},
		{"h265 977kbps 1080p30", 977, plan.CodecH265, 45},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := plan.CalculateOptimalScale(1920, 1080, tc.videoKbps, 30, tc.codec)
			if got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestCalculateOptimalScaleBounds(t *testing.T) {
	for _, kbps := range []int{1, 50, 200, 500, 1000, 5000, 20000} {
		got := plan.CalculateOptimalScale(1920, 1080, kbps, 30, plan.CodecH264)
		if got < 25 || got > 100 {
			t.Fatalf("kbps %d: scale %d outside [25,100]", kbps, got)
		}
		if got%5 != 0 {
			t.Fatalf("kbps %d: scale %d not a multiple of 5", kbps, got)
		}
	}
}

func TestCalculateOptimalScaleMonotoneInBitrate(t *testing.T) {
	prev := -1
	for _, kbps := range []int{100, 200, 350, 500, 700, 900, 1200, 2000, 4000, 8000} {
		got := plan.CalculateOptimalScale(1920, 1080, kbps, 30, plan.CodecH264)
		if prev >= 0 && got < prev {
			t.Fatalf("scale decreased from %d to %d as bitrate rose to %d", prev, got, kbps)
		}
		prev = got
	}
}

func TestCalculateOptimalScaleInvalidInputs(t *testing.T) {
	if got := plan.CalculateOptimalScale(0, 1080, 1000, 30, plan.CodecH264); got != 100 {
		t.Fatalf("zero width should return 100, got %d", got)
	}
	if got := plan.CalculateOptimalScale(1920, 1080, 0, 30, plan.CodecH264); got != 100 {
		t.Fatalf("zero bitrate should return 100, got %d", got)
	}
}

func TestCalculateOptimalScaleHEVCMoreLenient(t *testing.T) {
	// At the same bitrate the lower bpp target lets HEVC keep more resolution.
	h264 := plan.CalculateOptimalScale(1920, 1080, 800, 30, plan.CodecH264)
	h265 := plan.CalculateOptimalScale(1920, 1080, 800, 30, plan.CodecH265)
	if h265 < h264 {
		t.Fatalf("expected hevc scale %d >= h264 scale %d", h265, h264)
	}
}

func TestCalculateOptimalScaleRespectsHeightFloor(t *testing.T) {
	// 1200 kbps h264 requires at least 480p output from a 1080p source,
	// i.e. a scale of at least 45%.
	got := plan.CalculateOptimalScale(1920, 1080, 1200, 60, plan.CodecH264)
	if got < 45 {
		t.Fatalf("expected height floor to hold scale at >=45, got %d", got)
	}
}
