package main

import (
	"strings"
	"testing"

	"squeeze/internal/jobs"
)

func TestParseSegments(t *testing.T) {
	segments, err := parseSegments([]string{"0-10", "30.5-45"})
	if err != nil {
		t.Fatalf("parseSegments: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments", len(segments))
	}
	if segments[1].Start != 30.5 || segments[1].End != 45 {
		t.Errorf("second segment = %+v", segments[1])
	}

	for _, bad := range []string{"10", "a-b", "5-"} {
		if _, err := parseSegments([]string{bad}); err == nil {
			t.Errorf("parseSegments(%q) accepted malformed input", bad)
		}
	}
}

func TestFormatETA(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "-"},
		{45, "45s"},
		{90, "1m30s"},
		{3700, "1h01m"},
	}
	for _, tc := range cases {
		if got := formatETA(tc.seconds); got != tc.want {
			t.Errorf("formatETA(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestFormatSize(t *testing.T) {
	if got := formatSize(0); got != "-" {
		t.Errorf("formatSize(0) = %q", got)
	}
	if got := formatSize(512); got != "0.5 KB" {
		t.Errorf("formatSize(512) = %q", got)
	}
	if got := formatSize(10 << 20); got != "10.0 MB" {
		t.Errorf("formatSize(10MB) = %q", got)
	}
}

func TestDisplayStatus(t *testing.T) {
	if got := displayStatus(jobs.StatusProcessing); got != "Processing" {
		t.Errorf("displayStatus(processing) = %q", got)
	}
}

func TestJobRowsRenderAsTable(t *testing.T) {
	kbps := 1200
	snaps := []jobs.Snapshot{
		{
			ID:           "0123456789abcdef",
			Status:       jobs.StatusProcessing,
			Codec:        "h264",
			Encoder:      "libx264",
			Progress:     42.6,
			ETASeconds:   61,
			TargetSizeMB: 25,
			VideoKbps:    &kbps,
		},
	}
	rendered := renderTable(
		[]string{"ID", "Status", "Codec", "Encoder", "Progress", "ETA", "Target"},
		jobRows(snaps),
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
	for _, want := range []string{"01234567", "Processing", "libx264", "43%", "1m01s", "25.0 MB"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("rendered table missing %q:\n%s", want, rendered)
		}
	}
}

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("Daemon", statusOK, "pid 42", false)
	if !strings.Contains(line, "Daemon:") || !strings.Contains(line, "[OK] pid 42") {
		t.Errorf("unexpected status line %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Errorf("plain line carries ANSI codes: %q", line)
	}
}
