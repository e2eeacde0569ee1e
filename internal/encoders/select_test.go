package encoders

import (
	"context"
	"sync"
	"testing"

	"squeeze/internal/plan"
)

type fakeProber struct {
	mu        sync.Mutex
	available map[string]bool
	calls     map[string]int
}

func newFakeProber(available ...string) *fakeProber {
	p := &fakeProber{available: make(map[string]bool), calls: make(map[string]int)}
	for _, name := range available {
		p.available[name] = true
	}
	return p
}

func (p *fakeProber) Probe(_ context.Context, encoder string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[encoder]++
	return p.available[encoder]
}

func (p *fakeProber) callCount(encoder string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[encoder]
}

func TestGetBestEncoderPreferenceOrder(t *testing.T) {
	prober := newFakeProber("h264_qsv", "h264_vaapi")
	selector := NewSelector(prober, nil)

	got := selector.GetBestEncoder(context.Background(), plan.CodecH264)
	if got != "h264_qsv" {
		t.Errorf("GetBestEncoder = %q, want h264_qsv (first available in preference order)", got)
	}
}

func TestGetBestEncoderSoftwareFallback(t *testing.T) {
	selector := NewSelector(newFakeProber(), nil)

	cases := []struct {
		codec plan.Codec
		want  string
	}{
		{plan.CodecH264, "libx264"},
		{plan.CodecH265, "libx265"},
		{plan.CodecVP9, "libvpx-vp9"},
		{plan.CodecAV1, "libaom-av1"},
	}
	for _, tc := range cases {
		if got := selector.GetBestEncoder(context.Background(), tc.codec); got != tc.want {
			t.Errorf("GetBestEncoder(%s) = %q, want %q", tc.codec, got, tc.want)
		}
	}
}

func TestGetBestEncoderUnknownCodecFallsBackToH264(t *testing.T) {
	selector := NewSelector(newFakeProber(), nil)
	if got := selector.GetBestEncoder(context.Background(), plan.Codec("mpeg2")); got != "libx264" {
		t.Errorf("GetBestEncoder(mpeg2) = %q, want libx264", got)
	}
}

func TestProbeResultsCached(t *testing.T) {
	prober := newFakeProber()
	selector := NewSelector(prober, nil)

	selector.GetBestEncoder(context.Background(), plan.CodecH264)
	selector.GetBestEncoder(context.Background(), plan.CodecH264)

	if got := prober.callCount("h264_nvenc"); got != 1 {
		t.Errorf("h264_nvenc probed %d times, want 1 (cached)", got)
	}
}

func TestClearCacheForcesReprobe(t *testing.T) {
	prober := newFakeProber()
	selector := NewSelector(prober, nil)

	selector.IsEncoderAvailable(context.Background(), "h264_nvenc")
	selector.ClearCache()
	selector.IsEncoderAvailable(context.Background(), "h264_nvenc")

	if got := prober.callCount("h264_nvenc"); got != 2 {
		t.Errorf("h264_nvenc probed %d times after cache clear, want 2", got)
	}
}

func TestVP9HasNoHardwareCandidates(t *testing.T) {
	prober := newFakeProber("h264_nvenc")
	selector := NewSelector(prober, nil)

	if got := selector.GetBestEncoder(context.Background(), plan.CodecVP9); got != "libvpx-vp9" {
		t.Errorf("GetBestEncoder(vp9) = %q, want libvpx-vp9", got)
	}
	if prober.callCount("h264_nvenc") != 0 {
		t.Error("vp9 selection should not probe h264 encoders")
	}
}
