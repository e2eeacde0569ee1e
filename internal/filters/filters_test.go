package filters_test

import (
	"strings"
	"testing"

	"squeeze/internal/filters"
	"squeeze/internal/plan"
)

func intp(v int) *int { return &v }

func TestClassifyIntensity(t *testing.T) {
	cases := []struct {
		implied float64
		want    filters.Intensity
	}{
		{0, filters.IntensityLight},
		{500, filters.IntensityHeavy},
		{899, filters.IntensityHeavy},
		{900, filters.IntensityModerate},
		{1999, filters.IntensityModerate},
		{2000, filters.IntensityLight},
		{5000, filters.IntensityLight},
	}
	for _, tc := range cases {
		if got := filters.ClassifyIntensity(tc.implied); got != tc.want {
			t.Errorf("ClassifyIntensity(%v) = %v, want %v", tc.implied, got, tc.want)
		}
	}
}

func TestImpliedKbps(t *testing.T) {
	if got := filters.ImpliedKbps(10, 60); got < 1365 || got > 1366 {
		t.Fatalf("expected ~1365 kbps, got %v", got)
	}
	if got := filters.ImpliedKbps(0, 60); got != 0 {
		t.Fatalf("absent size should imply 0, got %v", got)
	}
}

func TestBuildOrdersFilters(t *testing.T) {
	req := plan.CompressionRequest{
		TargetSizeMB:    5,
		DurationSeconds: 60, // implied ~683 kbps: heavy
		ScalePercent:    50,
		TargetFPS:       intp(24),
		Crop:            &plan.CropRect{X: 10, Y: 10, Width: 640, Height: 480},
	}
	chain := filters.Build(req, filters.Options{})

	order := []string{"crop=", "hqdn3d=", "scale=", "deband=", "unsharp=", "fps=24"}
	last := -1
	for _, marker := range order {
		idx := strings.Index(chain, marker)
		if idx < 0 {
			t.Fatalf("missing %q in chain %q", marker, chain)
		}
		if idx < last {
			t.Fatalf("%q out of order in chain %q", marker, chain)
		}
		last = idx
	}
}

func TestBuildCropForcesEvenDimensions(t *testing.T) {
	req := plan.CompressionRequest{
		ScalePercent: 100,
		Crop:         &plan.CropRect{X: 0, Y: 0, Width: 641, Height: 1},
	}
	chain := filters.Build(req, filters.Options{})
	if !strings.Contains(chain, "crop=640:2:0:0") {
		t.Fatalf("expected even crop with 2px minimum, got %q", chain)
	}
}

func TestBuildSkipsSharpenForHeavyWithoutDownscale(t *testing.T) {
	req := plan.CompressionRequest{
		TargetSizeMB:    5,
		DurationSeconds: 60, // heavy
		ScalePercent:    100,
	}
	chain := filters.Build(req, filters.Options{})
	if strings.Contains(chain, "unsharp") {
		t.Fatalf("heavy intensity with no downscale must skip sharpening: %q", chain)
	}
}

func TestBuildForCompressionDropsExpensiveFilters(t *testing.T) {
	req := plan.CompressionRequest{
		TargetSizeMB:    100,
		DurationSeconds: 60, // implied ~13,653 kbps
		ScalePercent:    100,
	}
	chain := filters.Build(req, filters.Options{ForCompression: true})
	if strings.Contains(chain, "hqdn3d") || strings.Contains(chain, "deband") {
		t.Fatalf("generous budget should drop denoise/deband: %q", chain)
	}

	// Without the flag the full chain is kept.
	full := filters.Build(req, filters.Options{})
	if !strings.Contains(full, "hqdn3d") {
		t.Fatalf("expected denoise without ForCompression: %q", full)
	}
}

func TestBuildDisableAll(t *testing.T) {
	req := plan.CompressionRequest{ScalePercent: 50, TargetFPS: intp(30)}
	if chain := filters.Build(req, filters.Options{DisableAll: true}); chain != "" {
		t.Fatalf("DisableAll should yield empty chain, got %q", chain)
	}
}

func TestBuildSharpenScalesWithDownscale(t *testing.T) {
	mild := filters.Build(plan.CompressionRequest{ScalePercent: 90}, filters.Options{})
	strong := filters.Build(plan.CompressionRequest{ScalePercent: 40}, filters.Options{})
	if !strings.Contains(mild, "unsharp=5:5:0.40") {
		t.Fatalf("expected mild sharpen 0.40, got %q", mild)
	}
	if !strings.Contains(strong, "unsharp=5:5:0.90") {
		t.Fatalf("expected capped sharpen 0.90, got %q", strong)
	}
}
