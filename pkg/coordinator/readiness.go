package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ReadinessChecker reports whether one participant is ready for kind.
type ReadinessChecker interface {
	Ready(ctx context.Context, participant, kind string) (bool, error)
}

// ReadinessFunc adapts a function to ReadinessChecker.
type ReadinessFunc func(ctx context.Context, participant, kind string) (bool, error)

func (f ReadinessFunc) Ready(ctx context.Context, participant, kind string) (bool, error) {
	return f(ctx, participant, kind)
}

// Board is an in-process readiness board: participants signal, waiters poll.
type Board struct {
	mu    sync.RWMutex
	ready map[string]map[string]bool // kind -> participant -> ready
}

func NewBoard() *Board {
	return &Board{ready: make(map[string]map[string]bool)}
}

// Signal marks participant as ready for kind.
func (b *Board) Signal(participant, kind string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ready[kind] == nil {
		b.ready[kind] = make(map[string]bool)
	}
	b.ready[kind][participant] = true
}

// Clear withdraws a participant's readiness for kind.
func (b *Board) Clear(participant, kind string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.ready[kind], participant)
}

// Reset withdraws every participant's readiness for kind.
func (b *Board) Reset(kind string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.ready, kind)
}

func (b *Board) Ready(_ context.Context, participant, kind string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ready[kind][participant], nil
}

// WaitReady polls every participant until all of them report ready in the
// same poll, then returns their readiness map. Readiness does not accumulate
// across polls: a participant that drops out must be ready again.
// An empty participant list is ready immediately.
func (c *Coordinator) WaitReady(ctx context.Context, participants []string, kind string, timeout time.Duration) (map[string]bool, error) {
	if len(participants) == 0 {
		return map[string]bool{}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	desc := fmt.Sprintf("%d participants ready for %s", len(participants), kind)
	status, err := WaitFor(ctx, desc, timeout, c.pollInterval, func() (map[string]bool, bool, error) {
		snapshot := make(map[string]bool, len(participants))
		all := true
		var firstErr error
		for _, p := range participants {
			ok, err := c.readiness.Ready(ctx, p, kind)
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("participant %s: %w", p, err)
			}
			snapshot[p] = ok && err == nil
			if !snapshot[p] {
				all = false
			}
		}
		if !all {
			return nil, false, firstErr
		}
		return snapshot, true, nil
	})
	if err != nil {
		c.logger.Warn("participants not ready", "kind", kind, "participants", len(participants), "error", err)
		return nil, err
	}
	return status, nil
}

// Signal marks participant ready for kind on the coordinator's board.
func (c *Coordinator) Signal(participant, kind string) {
	c.board.Signal(participant, kind)
}

// Reset clears every participant's readiness for kind on the coordinator's board.
func (c *Coordinator) Reset(kind string) {
	c.board.Reset(kind)
}
