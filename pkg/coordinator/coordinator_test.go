package coordinator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcaldas/blockfit/pkg/blocks"
	"github.com/kcaldas/blockfit/pkg/events"
	"github.com/kcaldas/blockfit/pkg/logging"
)

func quietCoordinator(opts ...Option) *Coordinator {
	base := []Option{WithLogger(logging.NewDisabledLogger()), WithPollInterval(time.Millisecond)}
	return New(append(base, opts...)...)
}

func priorityRequest(label string) Request {
	return Request{
		Label: label,
		Blocks: []blocks.Block{
			{Content: "alpha", Priority: 0.9, SizeEstimate: 100},
			{Content: "beta", Priority: 0.5, SizeEstimate: 100},
			{Content: "gamma", Priority: 0.2, SizeEstimate: 100},
		},
		MaxTokens: 150,
		Strategy:  blocks.StrategyPriority,
		Timeout:   time.Second,
	}
}

// lowRatioRequest keeps one tiny block out of a large input, so the outcome
// ratio sits under the validation floor.
func lowRatioRequest() Request {
	return Request{
		Label: "low",
		Blocks: []blocks.Block{
			{Content: "tiny", Priority: 0.9, SizeEstimate: 10},
			{Content: "huge", Priority: 0.1, SizeEstimate: 200},
		},
		MaxTokens:  15,
		Strategy:   blocks.StrategyPriority,
		Completion: func(*blocks.Outcome) bool { return true },
		Timeout:    time.Second,
	}
}

func TestRun_Completes(t *testing.T) {
	c := quietCoordinator()

	rec := c.Run(context.Background(), priorityRequest("docs"))

	require.Equal(t, StatusCompleted, rec.Status, rec.ErrorMessage)
	require.NotNil(t, rec.Outcome)
	assert.Equal(t, 1, rec.Outcome.BlocksKept)
	assert.Equal(t, 100, rec.Outcome.OptimizedTokens)
	assert.InDelta(t, 0.333, rec.Outcome.CompressionRatio, 0.001)
	assert.Equal(t, "alpha", rec.Outcome.OptimizedContent)
	assert.True(t, strings.HasPrefix(rec.RunID, "docs_"))
	require.NotNil(t, rec.EndTime)
	assert.False(t, rec.EndTime.Before(rec.StartTime))
	assert.Empty(t, rec.ErrorMessage)

	stored, ok := c.Get(rec.RunID)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, stored.Status)
}

func TestRun_CompletionTimeout(t *testing.T) {
	c := quietCoordinator()
	req := priorityRequest("never")
	req.Completion = func(*blocks.Outcome) bool { return false }
	req.Timeout = 30 * time.Millisecond

	rec := c.Run(context.Background(), req)

	assert.Equal(t, StatusTimeout, rec.Status)
	assert.Nil(t, rec.Outcome)
	assert.Contains(t, rec.ErrorMessage, "30ms")
	assert.NotNil(t, rec.EndTime)
}

func TestRun_DefaultCompletionTimesOutOnHeavyCompression(t *testing.T) {
	c := quietCoordinator()
	req := lowRatioRequest()
	req.Completion = nil
	req.Timeout = 20 * time.Millisecond

	rec := c.Run(context.Background(), req)

	assert.Equal(t, StatusTimeout, rec.Status)
}

func TestRun_ValidationRunsEvenWithCustomCompletion(t *testing.T) {
	c := quietCoordinator(WithValidationTimeout(20 * time.Millisecond))

	rec := c.Run(context.Background(), lowRatioRequest())

	assert.Equal(t, StatusFailed, rec.Status)
	assert.Contains(t, rec.ErrorMessage, "validation failed")
	assert.Contains(t, rec.ErrorMessage, "compression ratio")
}

func TestRun_CallbackOnlyOnCompletion(t *testing.T) {
	c := quietCoordinator(WithValidationTimeout(20 * time.Millisecond))
	var got []Record

	ok := priorityRequest("cb")
	ok.Callback = func(r Record) { got = append(got, r) }
	c.Run(context.Background(), ok)

	bad := lowRatioRequest()
	bad.Callback = func(r Record) { got = append(got, r) }
	c.Run(context.Background(), bad)

	require.Len(t, got, 1)
	assert.Equal(t, StatusCompleted, got[0].Status)
	assert.Equal(t, "cb", got[0].Label)
}

func TestRun_CallbackPanicDoesNotChangeRecord(t *testing.T) {
	c := quietCoordinator()
	req := priorityRequest("cb-panic")
	req.Callback = func(Record) { panic("callback blew up") }

	rec := c.Run(context.Background(), req)

	assert.Equal(t, StatusCompleted, rec.Status)
	stored, _ := c.Get(rec.RunID)
	assert.Equal(t, StatusCompleted, stored.Status)
}

type panickingSelector struct{}

func (panickingSelector) Select([]blocks.Block, int, blocks.Strategy, bool) blocks.Outcome {
	panic("selector exploded")
}

func TestRun_SelectorPanicFailsRun(t *testing.T) {
	c := quietCoordinator(WithSelector(panickingSelector{}))

	rec := c.Run(context.Background(), priorityRequest("boom"))

	assert.Equal(t, StatusFailed, rec.Status)
	assert.Contains(t, rec.ErrorMessage, "selector exploded")
}

func TestRun_ContextCancelled(t *testing.T) {
	c := quietCoordinator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := priorityRequest("cancelled")
	req.Completion = func(*blocks.Outcome) bool { return false }

	rec := c.Run(ctx, req)

	assert.Equal(t, StatusFailed, rec.Status)
	assert.Contains(t, rec.ErrorMessage, "canceled")
}

func TestRun_UniqueIDsForSameLabel(t *testing.T) {
	c := quietCoordinator()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Run(context.Background(), priorityRequest("same"))
		}()
	}
	wg.Wait()

	runs := c.Runs()
	require.Len(t, runs, 20)
	seen := make(map[string]bool)
	for _, r := range runs {
		assert.False(t, seen[r.RunID], "duplicate run id %s", r.RunID)
		seen[r.RunID] = true
	}
	assert.Equal(t, 20, c.Stats()[StatusCompleted])
}

func TestRun_RecordsAreCopies(t *testing.T) {
	c := quietCoordinator()
	rec := c.Run(context.Background(), priorityRequest("copy"))
	rec.Status = StatusFailed
	rec.Outcome.BlocksKept = 99

	stored, _ := c.Get(rec.RunID)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, 1, stored.Outcome.BlocksKept)
}

func TestRun_PublishesLifecycleEvents(t *testing.T) {
	bus := events.NewEventBus()
	var (
		mu       sync.Mutex
		started  []events.RunStartedEvent
		finished []events.RunFinishedEvent
	)
	bus.Subscribe(events.TopicRunStarted, func(e any) {
		mu.Lock()
		defer mu.Unlock()
		started = append(started, e.(events.RunStartedEvent))
	})
	bus.Subscribe(events.TopicRunFinished, func(e any) {
		mu.Lock()
		defer mu.Unlock()
		finished = append(finished, e.(events.RunFinishedEvent))
	})

	c := quietCoordinator(WithPublisher(bus))
	rec := c.Run(context.Background(), priorityRequest("evented"))
	bus.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, started, 1)
	require.Len(t, finished, 1)
	assert.Equal(t, rec.RunID, started[0].RunID)
	assert.Equal(t, 150, started[0].MaxTokens)
	assert.Equal(t, 3, started[0].Blocks)
	assert.Equal(t, "completed", finished[0].Status)
	assert.Equal(t, 1, finished[0].BlocksKept)
}

func TestGet_Unknown(t *testing.T) {
	_, ok := quietCoordinator().Get("nope")
	assert.False(t, ok)
}

func TestRun_NilContext(t *testing.T) {
	var ctx context.Context
	c := quietCoordinator()

	rec := c.Run(ctx, priorityRequest("nil-ctx"))
	assert.Equal(t, StatusCompleted, rec.Status)

	recs := c.RunBatch(ctx, labelledRequests(2), 1)
	require.Len(t, recs, 2)
	assert.Equal(t, StatusCompleted, recs[1].Status)
}
