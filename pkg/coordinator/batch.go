package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// RunBatch runs every request with at most maxConcurrent in flight and
// returns their records in request order. A run that panics or never gets a
// slot yields a failed or timeout record instead of aborting the batch.
// The whole batch is bounded by the coordinator's batch timeout; every
// request owns exactly one registry entry however the batch ends.
func (c *Coordinator) RunBatch(ctx context.Context, reqs []Request, maxConcurrent int) []Record {
	if len(reqs) == 0 {
		return []Record{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}

	c.logger.Debug("batch started", "runs", len(reqs), "max_concurrent", maxConcurrent)

	// Only slot acquisition is cancelled when the batch ends; started runs
	// are bounded by their own timeouts.
	acquireCtx, stopAcquire := context.WithCancel(ctx)
	defer stopAcquire()

	now := time.Now()
	ids := make([]string, len(reqs))
	for i := range reqs {
		ids[i] = newRunID(reqs[i].Label, now)
	}

	sem := semaphore.NewWeighted(int64(maxConcurrent))
	var (
		mu     sync.Mutex
		sealed bool
		done   atomic.Int64
	)
	results := make([]Record, len(reqs))
	filled := make([]bool, len(reqs))

	for i := range reqs {
		go func(i int) {
			defer done.Add(1)
			rec, ok := c.runInSlot(ctx, acquireCtx, sem, ids[i], reqs[i])
			if !ok {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if !sealed {
				results[i] = rec
				filled[i] = true
			}
		}(i)
	}

	total := int64(len(reqs))
	waitErr := WaitUntil(ctx, fmt.Sprintf("batch of %d runs", len(reqs)), c.batchTimeout, c.pollInterval, func() bool {
		return done.Load() == total
	})
	stopAcquire()

	mu.Lock()
	defer mu.Unlock()
	sealed = true

	msg := "batch ended before run finished"
	if waitErr != nil {
		msg = waitErr.Error()
	}
	out := make([]Record, len(reqs))
	for i := range reqs {
		if filled[i] {
			out[i] = results[i]
			continue
		}
		out[i], _ = c.settle(ids[i], reqs[i].Label, StatusTimeout, msg)
	}

	if waitErr != nil {
		c.logger.Warn("batch did not finish in time", "error", waitErr, "finished", done.Load(), "runs", total)
	}
	return out
}

// runInSlot waits for a semaphore slot and runs req under runID. It reports
// false when no slot was obtained; the batch settles such runs itself.
func (c *Coordinator) runInSlot(ctx, acquireCtx context.Context, sem *semaphore.Weighted, runID string, req Request) (rec Record, ok bool) {
	if err := sem.Acquire(acquireCtx, 1); err != nil {
		return Record{}, false
	}
	defer sem.Release(1)

	defer func() {
		if r := recover(); r != nil {
			rec, _ = c.settle(runID, req.Label, StatusFailed, fmt.Sprintf("run panicked: %v", r))
			ok = true
		}
	}()
	return c.run(ctx, runID, req), true
}
