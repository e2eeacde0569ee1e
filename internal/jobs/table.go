package jobs

import (
	"sort"
	"sync"
)

// Table is the shared job registry. The table lock only guards membership
// and insertion order; per-job state has its own lock, so holders never
// block on a worker mutating a record.
type Table struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order map[string]uint64
	seq   uint64
}

// NewTable builds an empty registry.
func NewTable() *Table {
	return &Table{
		jobs:  make(map[string]*Job),
		order: make(map[string]uint64),
	}
}

// Insert registers a job, recording its submission order.
func (t *Table) Insert(job *Job) {
	t.mu.Lock()
	t.seq++
	t.jobs[job.ID] = job
	t.order[job.ID] = t.seq
	t.mu.Unlock()
}

// Get looks a job up by ID.
func (t *Table) Get(id string) (*Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	return job, ok
}

// Remove deletes a job from the registry.
func (t *Table) Remove(id string) (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if ok {
		delete(t.jobs, id)
		delete(t.order, id)
	}
	return job, ok
}

// Len returns the number of registered jobs.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.jobs)
}

// All returns the registered jobs in submission order.
func (t *Table) All() []*Job {
	t.mu.RLock()
	type entry struct {
		job *Job
		seq uint64
	}
	entries := make([]entry, 0, len(t.jobs))
	for id, job := range t.jobs {
		entries = append(entries, entry{job: job, seq: t.order[id]})
	}
	t.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]*Job, len(entries))
	for i, e := range entries {
		out[i] = e.job
	}
	return out
}

// ActiveCount returns the number of jobs that are queued or processing.
// This is the figure admission control compares against the queue bound.
func (t *Table) ActiveCount() int {
	count := 0
	for _, job := range t.All() {
		switch job.Status() {
		case StatusQueued, StatusProcessing:
			count++
		}
	}
	return count
}

// QueuePosition returns the 1-based position of the job among still-queued
// jobs in submission order, or 0 when the job is not queued.
func (t *Table) QueuePosition(id string) int {
	position := 0
	for _, job := range t.All() {
		if job.Status() != StatusQueued {
			continue
		}
		position++
		if job.ID == id {
			return position
		}
	}
	return 0
}
