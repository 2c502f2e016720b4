package coordinator

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcaldas/blockfit/pkg/blocks"
	"github.com/kcaldas/blockfit/pkg/events"
)

// slowSelector records how many selections overlap.
type slowSelector struct {
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
	next     *blocks.Selector
}

func (s *slowSelector) Select(input []blocks.Block, maxTokens int, strategy blocks.Strategy, preserve bool) blocks.Outcome {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(s.delay)
	return s.next.Select(input, maxTokens, strategy, preserve)
}

func newSlowSelector(delay time.Duration) *slowSelector {
	return &slowSelector{delay: delay, next: blocks.NewSelector()}
}

func labelledRequests(n int) []Request {
	reqs := make([]Request, n)
	for i := range reqs {
		reqs[i] = priorityRequest(fmt.Sprintf("req%d", i))
	}
	return reqs
}

func TestRunBatch_Empty(t *testing.T) {
	recs := quietCoordinator().RunBatch(context.Background(), nil, 3)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestRunBatch_PreservesRequestOrder(t *testing.T) {
	c := quietCoordinator()

	recs := c.RunBatch(context.Background(), labelledRequests(3), 1)

	require.Len(t, recs, 3)
	for i, r := range recs {
		assert.Equal(t, fmt.Sprintf("req%d", i), r.Label)
		assert.Equal(t, StatusCompleted, r.Status, r.ErrorMessage)
	}
}

func TestRunBatch_BoundsConcurrency(t *testing.T) {
	sel := newSlowSelector(20 * time.Millisecond)
	c := quietCoordinator(WithSelector(sel))

	recs := c.RunBatch(context.Background(), labelledRequests(8), 2)

	require.Len(t, recs, 8)
	for _, r := range recs {
		assert.Equal(t, StatusCompleted, r.Status)
	}
	assert.LessOrEqual(t, sel.peak.Load(), int32(2))
	assert.Equal(t, int32(2), sel.peak.Load())
}

func TestRunBatch_DefaultConcurrency(t *testing.T) {
	sel := newSlowSelector(20 * time.Millisecond)
	c := quietCoordinator(WithSelector(sel))

	c.RunBatch(context.Background(), labelledRequests(10), 0)

	assert.LessOrEqual(t, sel.peak.Load(), int32(DefaultMaxConcurrent))
}

func TestRunBatch_PanickingRunDoesNotAbortBatch(t *testing.T) {
	c := quietCoordinator(WithSelector(panickingSelector{}))

	recs := c.RunBatch(context.Background(), labelledRequests(3), 2)

	require.Len(t, recs, 3)
	for i, r := range recs {
		assert.Equal(t, fmt.Sprintf("req%d", i), r.Label)
		assert.Equal(t, StatusFailed, r.Status)
	}
	assert.Len(t, c.Runs(), 3)
}

func TestRunBatch_TimeoutYieldsTimeoutRecords(t *testing.T) {
	sel := newSlowSelector(200 * time.Millisecond)
	c := quietCoordinator(WithSelector(sel), WithBatchTimeout(50*time.Millisecond))

	start := time.Now()
	recs := c.RunBatch(context.Background(), labelledRequests(3), 1)
	elapsed := time.Since(start)

	require.Len(t, recs, 3)
	for i, r := range recs {
		assert.Equal(t, fmt.Sprintf("req%d", i), r.Label)
		assert.Equal(t, StatusTimeout, r.Status)
		assert.NotEmpty(t, r.RunID)
	}
	assert.Less(t, elapsed, 150*time.Millisecond)
}

func TestRunBatch_TimeoutKeepsOneRecordPerRequest(t *testing.T) {
	bus := events.NewEventBus()
	var finished atomic.Int32
	bus.Subscribe(events.TopicRunFinished, func(any) { finished.Add(1) })

	sel := newSlowSelector(200 * time.Millisecond)
	c := quietCoordinator(WithSelector(sel), WithBatchTimeout(50*time.Millisecond), WithPublisher(bus))
	reqs := labelledRequests(3)

	recs := c.RunBatch(context.Background(), reqs, 1)
	// Let the in-flight run finish behind the expired batch.
	time.Sleep(400 * time.Millisecond)
	bus.Shutdown()

	runs := c.Runs()
	require.Len(t, runs, len(reqs))
	assert.Equal(t, map[Status]int{StatusTimeout: 3}, c.Stats())
	for i, r := range recs {
		stored, ok := c.Get(r.RunID)
		require.True(t, ok)
		assert.Equal(t, StatusTimeout, stored.Status)
		assert.Equal(t, fmt.Sprintf("req%d", i), stored.Label)
	}
	assert.Equal(t, int32(3), finished.Load())
}

func TestRunBatch_RegistersEveryRun(t *testing.T) {
	c := quietCoordinator()

	recs := c.RunBatch(context.Background(), labelledRequests(12), 4)

	for _, r := range recs {
		stored, ok := c.Get(r.RunID)
		require.True(t, ok)
		assert.Equal(t, r.Status, stored.Status)
	}
	assert.Equal(t, 12, c.Stats()[StatusCompleted])
	assert.Zero(t, c.Stats()[StatusPending])
}
