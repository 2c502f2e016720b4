package coordinator

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// registry holds every run record for the lifetime of its coordinator.
// Entries are only added or moved from pending to a terminal status.
type registry struct {
	mu   sync.RWMutex
	runs map[string]*Record
}

func newRegistry() *registry {
	return &registry{runs: make(map[string]*Record)}
}

func newRunID(label string, at time.Time) string {
	if label == "" {
		label = "run"
	}
	return fmt.Sprintf("%s_%d_%s", label, at.UnixMilli(), uuid.New().String()[:8])
}

// add registers rec unless its run id is already taken.
func (r *registry) add(rec Record) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[rec.RunID]; exists {
		return false
	}
	stored := rec.clone()
	r.runs[rec.RunID] = &stored
	return true
}

// finish applies the terminal transition once. Later calls are ignored and
// return the already-final record with ok=false.
func (r *registry) finish(runID string, apply func(rec *Record)) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, exists := r.runs[runID]
	if !exists {
		return Record{}, false
	}
	if rec.Status.Terminal() {
		return rec.clone(), false
	}
	apply(rec)
	return rec.clone(), true
}

func (r *registry) get(runID string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.runs[runID]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// list returns all records ordered by start time, then run id.
func (r *registry) list() []Record {
	r.mu.RLock()
	out := make([]Record, 0, len(r.runs))
	for _, rec := range r.runs {
		out = append(out, rec.clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].RunID < out[j].RunID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

func (r *registry) stats() map[Status]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[Status]int, 4)
	for _, rec := range r.runs {
		counts[rec.Status]++
	}
	return counts
}
