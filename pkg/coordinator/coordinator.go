package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kcaldas/blockfit/pkg/blocks"
	"github.com/kcaldas/blockfit/pkg/events"
	"github.com/kcaldas/blockfit/pkg/logging"
)

// Coordinator defaults.
const (
	DefaultValidationTimeout = 5 * time.Second
	DefaultBatchTimeout      = 60 * time.Second
	DefaultMaxConcurrent     = 5
)

// Selector is the block packing step a run drives.
type Selector interface {
	Select(input []blocks.Block, maxTokens int, strategy blocks.Strategy, preserveStructure bool) blocks.Outcome
}

// Coordinator drives selections through completion and validation waits and
// keeps a registry of every run it has seen. It is safe for concurrent use.
type Coordinator struct {
	selector          Selector
	logger            logging.Logger
	publisher         events.Publisher
	registry          *registry
	board             *Board
	readiness         ReadinessChecker
	usage             UsageSource
	pollInterval      time.Duration
	validationTimeout time.Duration
	batchTimeout      time.Duration
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithSelector(s Selector) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.selector = s
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPublisher enables lifecycle events.
func WithPublisher(p events.Publisher) Option {
	return func(c *Coordinator) {
		c.publisher = p
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func WithValidationTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.validationTimeout = d
		}
	}
}

// WithBatchTimeout bounds the overall wait in RunBatch.
func WithBatchTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.batchTimeout = d
		}
	}
}

// WithReadinessChecker replaces the built-in readiness board as the source for WaitReady.
func WithReadinessChecker(r ReadinessChecker) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.readiness = r
		}
	}
}

// WithUsageSource sets the source polled by Watch.
func WithUsageSource(u UsageSource) Option {
	return func(c *Coordinator) {
		if u != nil {
			c.usage = u
		}
	}
}

// New creates a coordinator with its own registry and readiness board.
func New(opts ...Option) *Coordinator {
	board := NewBoard()
	c := &Coordinator{
		logger:            logging.NewComponentLogger("coordinator"),
		registry:          newRegistry(),
		board:             board,
		readiness:         board,
		usage:             SystemMemoryUsage(),
		pollInterval:      DefaultPollInterval,
		validationTimeout: DefaultValidationTimeout,
		batchTimeout:      DefaultBatchTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.selector == nil {
		c.selector = blocks.NewSelector(blocks.WithLogger(c.logger.With("component", "selector")))
	}
	return c
}

// Run executes one request and returns its final record. It never panics
// and never returns an error: every failure is reported in the record.
func (c *Coordinator) Run(ctx context.Context, req Request) Record {
	return c.run(ctx, newRunID(req.Label, time.Now()), req)
}

// run executes req under a run id chosen by the caller. If the id is
// already registered (a batch expired it before the run got going), the
// existing record is returned and nothing is executed.
func (c *Coordinator) run(ctx context.Context, runID string, req Request) Record {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	log := logging.NewRunLogger(c.logger, runID, req.Label)

	if !c.registry.add(Record{
		RunID:     runID,
		Label:     req.Label,
		Status:    StatusPending,
		StartTime: start,
	}) {
		rec, _ := c.registry.get(runID)
		return rec
	}
	log.Debug("run started", "strategy", string(req.Strategy), "max_tokens", req.MaxTokens, "blocks", len(req.Blocks))
	events.Emit(c.publisher, events.RunStartedEvent{
		RunID:     runID,
		Label:     req.Label,
		Strategy:  string(req.Strategy),
		MaxTokens: req.MaxTokens,
		Blocks:    len(req.Blocks),
		StartedAt: start,
	})

	var (
		rec     Record
		applied bool
	)
	outcome, err := c.execute(ctx, runID, req)
	if err != nil {
		rec, applied = c.fail(runID, err, log)
	} else {
		rec, applied = c.registry.finish(runID, func(r *Record) {
			end := time.Now()
			r.Status = StatusCompleted
			r.Outcome = &outcome
			r.EndTime = &end
		})
		if applied {
			log.Info("run completed",
				"compression_ratio", outcome.CompressionRatio,
				"blocks_kept", outcome.BlocksKept,
				"duration", rec.Duration())
		}
	}
	if !applied {
		// Another party (a batch deadline) settled the run first.
		log.Debug("run result discarded", "status", string(rec.Status))
		return rec
	}
	c.emitFinished(rec)

	if rec.Status == StatusCompleted && req.Callback != nil {
		c.invokeCallback(req.Callback, rec, log)
	}
	return rec
}

// execute selects and waits for completion and validation. It returns the
// outcome only when both hold.
func (c *Coordinator) execute(ctx context.Context, runID string, req Request) (outcome blocks.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run panicked: %v", r)
		}
	}()

	outcome = c.selector.Select(req.Blocks, req.MaxTokens, req.Strategy, req.PreserveStructure)

	completion := req.Completion
	if completion == nil {
		completion = DefaultCompletion
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	err = WaitUntil(ctx, "completion of "+runID, timeout, c.pollInterval, func() bool {
		return completion(&outcome)
	})
	if err != nil {
		return blocks.Outcome{}, err
	}

	var reasons []string
	err = WaitUntil(ctx, "validation of "+runID, c.validationTimeout, c.pollInterval, func() bool {
		reasons = ValidateOutcome(&outcome, req.MaxTokens)
		return len(reasons) == 0
	})
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return blocks.Outcome{}, &ValidationError{Reasons: reasons}
		}
		return blocks.Outcome{}, err
	}
	return outcome, nil
}

// fail moves the run to timeout or failed depending on the error kind.
func (c *Coordinator) fail(runID string, err error, log logging.Logger) (Record, bool) {
	status := StatusFailed
	switch {
	case errors.Is(err, ErrValidation):
		log.Warn("outcome failed validation", "error", err)
	case errors.Is(err, ErrTimeout):
		status = StatusTimeout
		log.Warn("completion condition not met", "error", err)
	default:
		log.Error("run failed", "error", err)
	}

	return c.registry.finish(runID, func(r *Record) {
		end := time.Now()
		r.Status = status
		r.ErrorMessage = err.Error()
		r.EndTime = &end
	})
}

// settle forces runID into a terminal status, registering it first if it
// never started. It reports false when the run had already finished.
func (c *Coordinator) settle(runID, label string, status Status, msg string) (Record, bool) {
	now := time.Now()
	rec := Record{
		RunID:        runID,
		Label:        label,
		Status:       status,
		ErrorMessage: msg,
		StartTime:    now,
		EndTime:      &now,
	}
	applied := c.registry.add(rec)
	if !applied {
		rec, applied = c.registry.finish(runID, func(r *Record) {
			end := time.Now()
			r.Status = status
			r.ErrorMessage = msg
			r.EndTime = &end
		})
	}
	if applied {
		c.emitFinished(rec)
	}
	return rec, applied
}

func (c *Coordinator) invokeCallback(cb Callback, rec Record, log logging.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("run callback panicked", "panic", r)
		}
	}()
	cb(rec.clone())
}

func (c *Coordinator) emitFinished(rec Record) {
	e := events.RunFinishedEvent{
		RunID:        rec.RunID,
		Label:        rec.Label,
		Status:       string(rec.Status),
		ErrorMessage: rec.ErrorMessage,
		Duration:     rec.Duration(),
	}
	if rec.Outcome != nil {
		e.CompressionRatio = rec.Outcome.CompressionRatio
		e.BlocksKept = rec.Outcome.BlocksKept
	}
	events.Emit(c.publisher, e)
}

// Get returns a copy of the record registered under runID.
func (c *Coordinator) Get(runID string) (Record, bool) {
	return c.registry.get(runID)
}

// Runs returns every record seen so far, oldest first.
func (c *Coordinator) Runs() []Record {
	return c.registry.list()
}

// Stats counts registered runs by status.
func (c *Coordinator) Stats() map[Status]int {
	return c.registry.stats()
}

// Board is the built-in readiness board participants signal on.
func (c *Coordinator) Board() *Board {
	return c.board
}
