package logging_test

import (
	"testing"

	"squeeze/internal/logging"
)

func TestProgressSamplerEmitsOnBucketBoundaries(t *testing.T) {
	s := logging.NewProgressSampler(5)

	if !s.ShouldLog(0, "pass 1") {
		t.Fatal("first event should log")
	}
	if s.ShouldLog(1.2, "pass 1") {
		t.Fatal("within-bucket event should be suppressed")
	}
	if s.ShouldLog(4.9, "pass 1") {
		t.Fatal("event below bucket boundary should be suppressed")
	}
	if !s.ShouldLog(5.1, "pass 1") {
		t.Fatal("crossing a bucket boundary should log")
	}
	if !s.ShouldLog(100, "pass 1") {
		t.Fatal("completion should log")
	}
}

func TestProgressSamplerEmitsOnStageChange(t *testing.T) {
	s := logging.NewProgressSampler(5)

	if !s.ShouldLog(50, "pass 1") {
		t.Fatal("first event should log")
	}
	if !s.ShouldLog(50, "pass 2") {
		t.Fatal("stage change should log even at same percent")
	}
	if s.ShouldLog(51, "pass 2") {
		t.Fatal("same bucket after stage change should be suppressed")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := logging.NewProgressSampler(10)
	if !s.ShouldLog(95, "pass 1") {
		t.Fatal("first event should log")
	}
	s.Reset()
	if !s.ShouldLog(0, "pass 1") {
		t.Fatal("after reset the first event should log again")
	}
}

func TestNilSamplerAlwaysLogs(t *testing.T) {
	var s *logging.ProgressSampler
	if !s.ShouldLog(10, "pass 1") {
		t.Fatal("nil sampler should always log")
	}
}
