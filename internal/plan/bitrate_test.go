package plan_test

import (
	"testing"

	"squeeze/internal/plan"
)

func TestComputeBitratePlanTenMBExample(t *testing.T) {
	ctx := plan.ContextFor(plan.CodecH264)
	bp := plan.ComputeBitratePlan(10, 60, ctx, false)

	if bp.TotalKbps != 1092 {
		t.Fatalf("expected total 1092 kbps, got %d", bp.TotalKbps)
	}
	if bp.AudioKbps != 115 {
		t.Fatalf("expected audio 115 kbps, got %d", bp.AudioKbps)
	}
	if bp.VideoKbps != 977 {
		t.Fatalf("expected video 977 kbps, got %d", bp.VideoKbps)
	}
	if bp.VideoKbps < 700 || bp.VideoKbps > 1000 {
		t.Fatalf("video kbps %d out of expected range", bp.VideoKbps)
	}
}

func TestComputeBitratePlanTightBudget(t *testing.T) {
	ctx := plan.ContextFor(plan.CodecH264)
	bp := plan.ComputeBitratePlan(2, 120, ctx, false)

	if bp.TotalKbps != 98 {
		t.Fatalf("expected total 98 kbps, got %d", bp.TotalKbps)
	}
	// The 40 kbps low-rate audio tier is further limited by the 25% share cap.
	if bp.AudioKbps != 24 {
		t.Fatalf("expected audio 24 kbps, got %d", bp.AudioKbps)
	}
	if bp.VideoKbps != 80 {
		t.Fatalf("expected video floored at 80 kbps, got %d", bp.VideoKbps)
	}
}

func TestComputeBitratePlanConservation(t *testing.T) {
	ctx := plan.ContextFor(plan.CodecH264)
	cases := []struct {
		sizeMB   float64
		duration float64
	}{
		{5, 30}, {10, 60}, {50, 600}, {100, 1200}, {500, 3600}, {3, 45},
	}
	for _, tc := range cases {
		bp := plan.ComputeBitratePlan(tc.sizeMB, tc.duration, ctx, false)
		if bp.VideoKbps < 80 {
			t.Errorf("%.0fMB/%.0fs: video %d below floor", tc.sizeMB, tc.duration, bp.VideoKbps)
		}
		if bp.VideoKbps+bp.AudioKbps != bp.TotalKbps && bp.VideoKbps != 80 {
			t.Errorf("%.0fMB/%.0fs: video %d + audio %d != total %d",
				tc.sizeMB, tc.duration, bp.VideoKbps, bp.AudioKbps, bp.TotalKbps)
		}
	}
}

func TestComputeBitratePlanMutedAudio(t *testing.T) {
	ctx := plan.ContextFor(plan.CodecH264)
	bp := plan.ComputeBitratePlan(10, 60, ctx, true)
	if bp.AudioKbps != 0 {
		t.Fatalf("muted audio should budget 0 kbps, got %d", bp.AudioKbps)
	}
	if bp.VideoKbps != bp.TotalKbps {
		t.Fatalf("muted: video %d should equal total %d", bp.VideoKbps, bp.TotalKbps)
	}
}

func TestComputeBitratePlanDurationTiers(t *testing.T) {
	ctx := plan.ContextFor(plan.CodecH264)
	short := plan.ComputeBitratePlan(50, 299, ctx, false)
	long := plan.ComputeBitratePlan(50, 1801, ctx, false)
	// Longer content reserves more, leaving a smaller payload for the same size.
	if long.PayloadMB >= short.PayloadMB {
		t.Fatalf("expected duration tier to shrink payload: short %.3f, long %.3f",
			short.PayloadMB, long.PayloadMB)
	}
}

func TestComputeBitratePlanTinyTargetFallback(t *testing.T) {
	ctx := plan.ContextFor(plan.CodecH264)
	bp := plan.ComputeBitratePlan(0.2, 60, ctx, false)
	// Reserve would swallow the whole budget; payload falls back to a floor.
	if bp.PayloadMB <= 0 {
		t.Fatalf("payload must stay positive, got %.4f", bp.PayloadMB)
	}
	if bp.VideoKbps < 80 {
		t.Fatalf("video floor violated: %d", bp.VideoKbps)
	}
}

func TestComputeBitratePlanAudioTiers(t *testing.T) {
	ctx := plan.ContextFor(plan.CodecH264)
	cases := []struct {
		sizeMB    float64
		duration  float64
		wantAudio int
	}{
		// total ≈ 1092 → 90% of the 128 kbps default
		{10, 60, 115},
		// total ≈ 98 → 40 tier capped by the 25% share
		{2, 120, 24},
	}
	for _, tc := range cases {
		bp := plan.ComputeBitratePlan(tc.sizeMB, tc.duration, ctx, false)
		if bp.AudioKbps != tc.wantAudio {
			t.Errorf("%.0fMB/%.0fs: expected audio %d, got %d (total %d)",
				tc.sizeMB, tc.duration, tc.wantAudio, bp.AudioKbps, bp.TotalKbps)
		}
	}
}
