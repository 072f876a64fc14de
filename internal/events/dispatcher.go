package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned by Publish when the buffer is saturated; the event is dropped.
	ErrQueueFull = errors.New("event queue full")
	// ErrDispatcherClosed is returned by Publish after Close.
	ErrDispatcherClosed = errors.New("event dispatcher closed")
)

const defaultHandlerTimeout = 30 * time.Second

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

type envelope struct {
	ctx   context.Context
	event Event
}

// AsyncDispatcher queues events and runs handlers on worker goroutines.
// Publish never waits for handlers. Handler errors are logged and dropped.
type AsyncDispatcher struct {
	logger         *zap.Logger
	handlerTimeout time.Duration

	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	queue     chan envelope
	closed    bool
	started   bool
	wg        sync.WaitGroup
}

// NewAsyncDispatcher creates a dispatcher with the given buffer size.
func NewAsyncDispatcher(logger *zap.Logger, queueSize int) *AsyncDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &AsyncDispatcher{
		logger:         logger,
		handlerTimeout: defaultHandlerTimeout,
		listeners:      make(map[EventType][]EventHandler),
		queue:          make(chan envelope, queueSize),
	}
}

// Start launches the worker goroutines. Calling it more than once is a no-op.
func (d *AsyncDispatcher) Start(workers int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

// Publish enqueues the event. The request context's values are kept but its
// cancellation is not, so handlers outlive the request that triggered them.
func (d *AsyncDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("event dropped after shutdown", zap.String("event_type", string(event.Type)), zap.String("issue_id", event.IssueID))
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- envelope{ctx: context.WithoutCancel(ctx), event: event}:
		return nil
	default:
		d.logger.Warn("event queue full, dropping event", zap.String("event_type", string(event.Type)), zap.String("issue_id", event.IssueID))
		return ErrQueueFull
	}
}

// Subscribe registers a handler for the given event type.
func (d *AsyncDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

// Close stops accepting events and waits for queued ones to be handled,
// or for ctx to expire.
func (d *AsyncDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *AsyncDispatcher) run() {
	defer d.wg.Done()
	for env := range d.queue {
		d.dispatch(env)
	}
}

func (d *AsyncDispatcher) dispatch(env envelope) {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[env.event.Type]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		d.invoke(env, handler)
	}
}

func (d *AsyncDispatcher) invoke(env envelope, handler EventHandler) {
	ctx, cancel := context.WithTimeout(env.ctx, d.handlerTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				zap.String("event_type", string(env.event.Type)),
				zap.String("issue_id", env.event.IssueID),
				zap.Any("panic", r))
		}
	}()
	if err := handler(ctx, env.event); err != nil {
		d.logger.Warn("event handler failed",
			zap.String("event_type", string(env.event.Type)),
			zap.String("event_id", env.event.ID),
			zap.String("issue_id", env.event.IssueID),
			zap.Error(err))
	}
}
