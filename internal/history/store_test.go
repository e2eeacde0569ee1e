package history

import (
	"context"
	"testing"
	"time"

	"squeeze/internal/jobs"
	"squeeze/internal/plan"
	"squeeze/internal/services"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func terminalSnapshot(id string) jobs.Snapshot {
	kbps := 900
	now := time.Now()
	return jobs.Snapshot{
		ID:             id,
		Status:         jobs.StatusCompleted,
		Codec:          plan.CodecH264,
		Encoder:        "libx264",
		TargetSizeMB:   10,
		VideoKbps:      &kbps,
		AudioKbps:      96,
		EffectiveScale: 100,
		CreatedAt:      now.Add(-time.Minute),
		StartedAt:      now.Add(-30 * time.Second),
		CompletedAt:    now,
	}
}

func TestArchiveAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.Archive(ctx, terminalSnapshot("job-1"), 9_500_000); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	entry, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry.Status != jobs.StatusCompleted {
		t.Errorf("Status = %s, want completed", entry.Status)
	}
	if entry.OutputSizeBytes != 9_500_000 {
		t.Errorf("OutputSizeBytes = %d, want 9500000", entry.OutputSizeBytes)
	}
	if entry.VideoKbps == nil || *entry.VideoKbps != 900 {
		t.Errorf("VideoKbps = %v, want 900", entry.VideoKbps)
	}
}

func TestArchiveRejectsNonTerminal(t *testing.T) {
	store := openStore(t)
	snap := terminalSnapshot("job-1")
	snap.Status = jobs.StatusProcessing

	err := store.Archive(context.Background(), snap, 0)
	if err == nil {
		t.Fatal("archived a processing job")
	}
}

func TestArchiveUpsertsOnConflict(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	snap := terminalSnapshot("job-1")
	snap.Status = jobs.StatusFailed
	snap.Error = "encoder exited with code 1"
	if err := store.Archive(ctx, snap, 0); err != nil {
		t.Fatalf("Archive failed job: %v", err)
	}

	// Retry succeeded; the same job is archived again as completed.
	if err := store.Archive(ctx, terminalSnapshot("job-1"), 1024); err != nil {
		t.Fatalf("Archive completed job: %v", err)
	}

	entry, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry.Status != jobs.StatusCompleted {
		t.Errorf("Status = %s, want completed after upsert", entry.Status)
	}
	if entry.ErrorMessage != "" {
		t.Errorf("ErrorMessage = %q, want cleared", entry.ErrorMessage)
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	store := openStore(t)
	_, err := store.Get(context.Background(), "nope")
	if !services.IsNotFound(err) {
		t.Errorf("error = %v, want not-found", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, id := range []string{"job-1", "job-2", "job-3"} {
		if err := store.Archive(ctx, terminalSnapshot(id), 0); err != nil {
			t.Fatalf("Archive %s: %v", id, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	entries, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].JobID != "job-3" {
		t.Errorf("first entry = %s, want job-3", entries[0].JobID)
	}
}

func TestPrune(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.Archive(ctx, terminalSnapshot("job-1"), 0); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	removed, err := store.Prune(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 0 {
		t.Errorf("Prune removed %d fresh entries", removed)
	}

	removed, err = store.Prune(ctx, -time.Minute)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune removed %d, want 1", removed)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Archive(context.Background(), terminalSnapshot("job-1"), 0); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	_ = store.Close()

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	if _, err := reopened.Get(context.Background(), "job-1"); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}
