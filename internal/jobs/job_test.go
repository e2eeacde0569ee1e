package jobs

import (
	"os"
	"path/filepath"
	"testing"

	"squeeze/internal/plan"
)

func testRequest() plan.CompressionRequest {
	return plan.Normalize(plan.CompressionRequest{
		Mode:            plan.ModeFast,
		TargetSizeMB:    10,
		DurationSeconds: 60,
	})
}

func TestLifecycleHappyPath(t *testing.T) {
	job := New(testRequest(), "input.mp4")

	if job.Status() != StatusQueued {
		t.Fatalf("new job status = %s, want queued", job.Status())
	}
	if job.ID == "" {
		t.Fatal("new job has empty ID")
	}
	if err := job.MarkProcessing(); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if job.StartedAt.IsZero() {
		t.Error("StartedAt not recorded")
	}
	job.MarkCompleted()
	if job.Status() != StatusCompleted {
		t.Errorf("status = %s, want completed", job.Status())
	}
	if pct, _ := job.Progress(); pct != 100 {
		t.Errorf("completed progress = %v, want 100", pct)
	}
}

func TestMarkProcessingRejectsCancelled(t *testing.T) {
	job := New(testRequest(), "input.mp4")
	if _, ok := job.MarkCancelled(); !ok {
		t.Fatal("cancel of queued job refused")
	}
	if err := job.MarkProcessing(); err == nil {
		t.Error("MarkProcessing succeeded on a cancelled job")
	}
}

func TestCancelIsTerminalOnce(t *testing.T) {
	job := New(testRequest(), "input.mp4")
	job.MarkCompleted()
	if _, ok := job.MarkCancelled(); ok {
		t.Error("cancel transitioned a completed job")
	}
}

func TestMarkFailedCapturesMessage(t *testing.T) {
	job := New(testRequest(), "input.mp4")
	_ = job.MarkProcessing()
	job.MarkFailed("encoder exited with code 1")
	if job.Status() != StatusFailed {
		t.Fatalf("status = %s, want failed", job.Status())
	}
	if job.ErrorMessage() != "encoder exited with code 1" {
		t.Errorf("ErrorMessage = %q", job.ErrorMessage())
	}
}

func TestResetForRetry(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.mp4")
	if err := os.WriteFile(input, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	job := New(testRequest(), input)
	_ = job.MarkProcessing()
	job.SetProgress(42, 10)
	job.MarkFailed("boom")

	if err := job.ResetForRetry(); err != nil {
		t.Fatalf("ResetForRetry: %v", err)
	}
	if job.Status() != StatusQueued {
		t.Errorf("status = %s, want queued", job.Status())
	}
	if pct, eta := job.Progress(); pct != 0 || eta != 0 {
		t.Errorf("progress = (%v, %v), want reset", pct, eta)
	}
	if job.ErrorMessage() != "" {
		t.Error("error message not cleared")
	}
	if !job.StartedAt.IsZero() || !job.CompletedAt.IsZero() {
		t.Error("timestamps not cleared")
	}
}

func TestClaimFinalizeIsExclusive(t *testing.T) {
	job := New(testRequest(), "input.mp4")
	job.MarkFailed("boom")

	if !job.ClaimFinalize() {
		t.Fatal("first claim refused")
	}
	if job.ClaimFinalize() {
		t.Fatal("second claim succeeded")
	}
}

func TestResetForRetryReopensFinalization(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.mp4")
	if err := os.WriteFile(input, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	job := New(testRequest(), input)
	_ = job.MarkProcessing()
	job.MarkFailed("boom")
	if !job.ClaimFinalize() {
		t.Fatal("claim refused on failed job")
	}
	if err := job.ResetForRetry(); err != nil {
		t.Fatalf("ResetForRetry: %v", err)
	}
	job.MarkCompleted()
	if !job.ClaimFinalize() {
		t.Error("retried job cannot be finalized again")
	}
}

func TestSetVideoKbpsVisibleInSnapshot(t *testing.T) {
	job := New(testRequest(), "input.mp4")
	job.SetVideoKbps(640)
	snap := job.Snapshot()
	if snap.VideoKbps == nil || *snap.VideoKbps != 640 {
		t.Errorf("snapshot VideoKbps = %v, want 640", snap.VideoKbps)
	}
}

func TestApplyPlanVisibleInSnapshot(t *testing.T) {
	job := New(testRequest(), "input.mp4")
	kbps := 1200
	job.ApplyPlan(PlanResult{
		Request:    job.Request,
		VideoKbps:  &kbps,
		AudioKbps:  128,
		Encoder:    "libx264",
		OutputPath: "out.mp4",
	})

	snap := job.Snapshot()
	if snap.VideoKbps == nil || *snap.VideoKbps != 1200 {
		t.Errorf("snapshot VideoKbps = %v, want 1200", snap.VideoKbps)
	}
	if snap.AudioKbps != 128 || snap.Encoder != "libx264" {
		t.Errorf("plan fields not applied: %+v", snap)
	}
	if snap.OutputPath != "out.mp4" {
		t.Errorf("OutputPath = %q", snap.OutputPath)
	}
}

func TestResetForRetryRequiresRetryableState(t *testing.T) {
	job := New(testRequest(), "input.mp4")
	if err := job.ResetForRetry(); err == nil {
		t.Error("retry allowed from queued")
	}
}

func TestResetForRetryRejectsSkippedJob(t *testing.T) {
	job := New(testRequest(), "input.mp4")
	job.SkipEncode = true
	job.MarkFailed("boom")
	if err := job.ResetForRetry(); err == nil {
		t.Error("retry allowed for a skip-compression job")
	}
}

func TestResetForRetryRejectsMissingInput(t *testing.T) {
	job := New(testRequest(), filepath.Join(t.TempDir(), "gone.mp4"))
	job.MarkFailed("boom")
	if err := job.ResetForRetry(); err == nil {
		t.Error("retry allowed with cleaned-up input")
	}
}

func TestSetProgressClamps(t *testing.T) {
	job := New(testRequest(), "input.mp4")
	job.SetProgress(140, 5)
	if pct, _ := job.Progress(); pct != 100 {
		t.Errorf("progress = %v, want clamped 100", pct)
	}
	job.SetProgress(-3, 5)
	if pct, _ := job.Progress(); pct != 0 {
		t.Errorf("progress = %v, want clamped 0", pct)
	}
}
