package jobs

import (
	"fmt"
	"sync"
	"testing"
)

func insertJobs(t *testing.T, table *Table, n int) []*Job {
	t.Helper()
	out := make([]*Job, 0, n)
	for i := 0; i < n; i++ {
		job := New(testRequest(), fmt.Sprintf("input-%d.mp4", i))
		table.Insert(job)
		out = append(out, job)
	}
	return out
}

func TestTableInsertGetRemove(t *testing.T) {
	table := NewTable()
	job := New(testRequest(), "input.mp4")
	table.Insert(job)

	got, ok := table.Get(job.ID)
	if !ok || got != job {
		t.Fatal("Get did not return the inserted job")
	}
	if _, ok := table.Remove(job.ID); !ok {
		t.Fatal("Remove did not find the job")
	}
	if _, ok := table.Get(job.ID); ok {
		t.Error("job still present after Remove")
	}
}

func TestAllPreservesSubmissionOrder(t *testing.T) {
	table := NewTable()
	inserted := insertJobs(t, table, 5)

	all := table.All()
	if len(all) != 5 {
		t.Fatalf("len(All) = %d, want 5", len(all))
	}
	for i, job := range all {
		if job.ID != inserted[i].ID {
			t.Errorf("All[%d] = %s, want %s", i, job.ID, inserted[i].ID)
		}
	}
}

func TestQueuePositionIgnoresNonQueued(t *testing.T) {
	table := NewTable()
	inserted := insertJobs(t, table, 4)

	_ = inserted[0].MarkProcessing()
	inserted[1].MarkCancelled()

	if pos := table.QueuePosition(inserted[2].ID); pos != 1 {
		t.Errorf("position of third job = %d, want 1", pos)
	}
	if pos := table.QueuePosition(inserted[3].ID); pos != 2 {
		t.Errorf("position of fourth job = %d, want 2", pos)
	}
	if pos := table.QueuePosition(inserted[0].ID); pos != 0 {
		t.Errorf("position of processing job = %d, want 0", pos)
	}
}

func TestActiveCountExcludesTerminal(t *testing.T) {
	table := NewTable()
	inserted := insertJobs(t, table, 3)

	_ = inserted[0].MarkProcessing()
	inserted[0].MarkCompleted()

	if got := table.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}
}

func TestTableConcurrentAccess(t *testing.T) {
	table := NewTable()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job := New(testRequest(), fmt.Sprintf("input-%d.mp4", i))
			table.Insert(job)
			table.QueuePosition(job.ID)
			if i%2 == 0 {
				table.Remove(job.ID)
			}
		}(i)
	}
	wg.Wait()

	if got := table.Len(); got != 8 {
		t.Errorf("Len = %d, want 8", got)
	}
}
