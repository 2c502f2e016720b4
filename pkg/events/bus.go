package events

import (
	"sync"
	"sync/atomic"

	"github.com/kcaldas/blockfit/pkg/logging"
)

const defaultTopicBuffer = 256

// EventHandler is a function that handles an event
type EventHandler func(event any)

// Event is implemented by payloads that know their own topic.
type Event interface {
	Topic() string
}

// Publisher allows publishing events
type Publisher interface {
	Publish(eventType string, event any)
}

// Subscriber allows subscribing to events
type Subscriber interface {
	Subscribe(eventType string, handler EventHandler)
}

// EventBus provides both publishing and subscribing
type EventBus interface {
	Publisher
	Subscriber
}

// Emit publishes e on its own topic. A nil publisher is a no-op.
func Emit(p Publisher, e Event) {
	if p == nil {
		return
	}
	p.Publish(e.Topic(), e)
}

// InMemoryBus delivers events in-order per topic on a dedicated worker goroutine.
type InMemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string][]EventHandler
	workers     map[string]*topicWorker
	bufferSize  int
	dropped     atomic.Int64
	logger      logging.Logger
	closed      bool
}

// NewEventBus creates a new event bus with the default buffer size.
func NewEventBus() *InMemoryBus {
	return NewEventBusWithBuffer(defaultTopicBuffer)
}

// NewEventBusWithBuffer allows configuring the per-topic worker queue size.
// A buffer of at least 1 is enforced to avoid unbuffered sends.
func NewEventBusWithBuffer(buffer int) *InMemoryBus {
	if buffer < 1 {
		buffer = 1
	}
	return &InMemoryBus{
		subscribers: make(map[string][]EventHandler),
		workers:     make(map[string]*topicWorker),
		bufferSize:  buffer,
		logger:      logging.NewComponentLogger("events"),
	}
}

// Subscribe adds a handler for a specific event type.
func (b *InMemoryBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish sends an event to all subscribers of that event type.
// Publishing is non-blocking: if the topic queue is full the event is dropped.
func (b *InMemoryBus) Publish(eventType string, event any) {
	handlers := b.handlersFor(eventType)
	if len(handlers) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	worker, ok := b.workers[eventType]
	if !ok {
		worker = newTopicWorker(b.bufferSize, b.logger)
		b.workers[eventType] = worker
	}

	select {
	case worker.ch <- eventEnvelope{event: event, handlers: handlers}:
	default:
		b.dropped.Add(1)
		b.logger.Warn("event queue full, dropping event", "topic", eventType)
	}
}

// DroppedCount returns the number of events dropped due to full queues.
func (b *InMemoryBus) DroppedCount() int64 {
	return b.dropped.Load()
}

// Shutdown drains and stops all topic workers. Publishing afterwards is a no-op.
func (b *InMemoryBus) Shutdown() {
	b.mu.Lock()
	b.closed = true
	workers := make([]*topicWorker, 0, len(b.workers))
	for _, w := range b.workers {
		workers = append(workers, w)
	}
	b.mu.Unlock()

	for _, w := range workers {
		w.stop()
	}
}

// handlersFor snapshots handlers for the topic.
func (b *InMemoryBus) handlersFor(eventType string) []EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]EventHandler, len(b.subscribers[eventType]))
	copy(handlers, b.subscribers[eventType])
	return handlers
}

type eventEnvelope struct {
	event    any
	handlers []EventHandler
}

type topicWorker struct {
	ch       chan eventEnvelope
	wg       sync.WaitGroup
	stopOnce sync.Once
	logger   logging.Logger
}

func newTopicWorker(buffer int, logger logging.Logger) *topicWorker {
	w := &topicWorker{
		ch:     make(chan eventEnvelope, buffer),
		logger: logger,
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *topicWorker) run() {
	defer w.wg.Done()
	for env := range w.ch {
		for _, handler := range env.handlers {
			w.deliver(handler, env.event)
		}
	}
}

func (w *topicWorker) deliver(h EventHandler, e any) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("event handler panicked", "panic", r)
		}
	}()
	h(e)
}

func (w *topicWorker) stop() {
	w.stopOnce.Do(func() {
		close(w.ch)
		w.wg.Wait()
	})
}
