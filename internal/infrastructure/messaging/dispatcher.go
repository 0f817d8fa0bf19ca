package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher subscribes to the event bus and fans events out to the handlers
// registered per event type. Handlers run concurrently through a bounded
// worker pool, with per-handler timeout, retry with exponential backoff, and
// panic recovery. Events whose handlers exhaust their retries are kept in a
// dead letter buffer for inspection.
type Dispatcher struct {
	eventBus    shared.EventBus
	handlers    map[shared.EventType][]HandlerRegistration
	retryConfig RetryConfig
	deadLetters *deadLetterBuffer
	logger      *slog.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	workerPool  chan struct{}
}

// HandlerRegistration carries a handler and its execution limits.
type HandlerRegistration struct {
	Name       string
	Handler    shared.EventHandler
	MaxRetries int
	Timeout    time.Duration
}

// DispatcherConfig contains configuration for the Dispatcher.
type DispatcherConfig struct {
	// EventBus is the underlying event bus
	EventBus shared.EventBus

	// WorkerPoolSize bounds concurrent handler executions
	WorkerPoolSize int

	// RetryConfig configures retry behavior
	RetryConfig RetryConfig

	// DeadLetterSize is the max number of failed events retained
	DeadLetterSize int

	// Logger for structured logging
	Logger *slog.Logger
}

// RetryConfig contains retry configuration.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts
	MaxRetries int

	// InitialBackoff is the initial wait between retries
	InitialBackoff time.Duration

	// MaxBackoff is the maximum wait between retries
	MaxBackoff time.Duration

	// BackoffMultiplier is the factor for exponential backoff
	BackoffMultiplier float64
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// DefaultDispatcherConfig returns sensible defaults.
func DefaultDispatcherConfig(eventBus shared.EventBus) DispatcherConfig {
	return DispatcherConfig{
		EventBus:       eventBus,
		WorkerPoolSize: 10,
		RetryConfig:    DefaultRetryConfig(),
		DeadLetterSize: 1000,
	}
}

// NewDispatcher creates a new event dispatcher.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 10
	}
	if config.DeadLetterSize <= 0 {
		config.DeadLetterSize = 1000
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		eventBus:    config.EventBus,
		handlers:    make(map[shared.EventType][]HandlerRegistration),
		retryConfig: config.RetryConfig,
		deadLetters: newDeadLetterBuffer(config.DeadLetterSize),
		logger:      config.Logger,
		ctx:         ctx,
		cancel:      cancel,
		workerPool:  make(chan struct{}, config.WorkerPoolSize),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER REGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// RegisterHandler registers a handler for an event type.
func (d *Dispatcher) RegisterHandler(eventType shared.EventType, reg HandlerRegistration) error {
	if reg.Handler == nil {
		return errors.New("handler cannot be nil")
	}
	if reg.Name == "" {
		reg.Name = fmt.Sprintf("handler-%d", time.Now().UnixNano())
	}
	if reg.MaxRetries <= 0 {
		reg.MaxRetries = d.retryConfig.MaxRetries
	}
	if reg.Timeout <= 0 {
		reg.Timeout = 30 * time.Second
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[eventType] = append(d.handlers[eventType], reg)
	d.logger.Debug("registered handler",
		"event_type", eventType,
		"handler_name", reg.Name,
	)

	return nil
}

// Register registers a handler with default retry and timeout limits.
func (d *Dispatcher) Register(eventType shared.EventType, name string, handler shared.EventHandler) error {
	return d.RegisterHandler(eventType, HandlerRegistration{
		Name:    name,
		Handler: handler,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT DISPATCHING
// ══════════════════════════════════════════════════════════════════════════════

// Start subscribes the dispatcher to every event on the bus.
func (d *Dispatcher) Start() error {
	return d.eventBus.SubscribeAll(func(event shared.Event) error {
		return d.dispatch(event)
	})
}

// Dispatch routes an event to its handlers without going through the bus.
func (d *Dispatcher) Dispatch(event shared.Event) error {
	return d.dispatch(event)
}

// dispatch runs every handler registered for the event's type concurrently
// and waits for all of them. Handler failures are logged and dead-lettered,
// never propagated: one failing subscriber must not fail the others.
func (d *Dispatcher) dispatch(event shared.Event) error {
	d.mu.RLock()
	handlers := d.handlers[event.EventType()]
	d.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, reg := range handlers {
		wg.Add(1)
		go func(r HandlerRegistration) {
			defer wg.Done()
			d.executeHandler(event, r)
		}(reg)
	}
	wg.Wait()

	return nil
}

func (d *Dispatcher) executeHandler(event shared.Event, reg HandlerRegistration) {
	select {
	case d.workerPool <- struct{}{}:
		defer func() { <-d.workerPool }()
	case <-d.ctx.Done():
		return
	}

	var lastErr error
	for attempt := 0; attempt <= reg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := d.backoff(attempt)
			d.logger.Debug("retrying handler",
				"handler", reg.Name,
				"attempt", attempt,
				"backoff", backoff,
			)

			select {
			case <-d.ctx.Done():
				return
			case <-time.After(backoff):
			}
		}

		err := d.runOnce(event, reg)
		if err == nil {
			return
		}

		lastErr = err
		d.logger.Warn("handler attempt failed",
			"handler", reg.Name,
			"event_type", event.EventType(),
			"attempt", attempt,
			"error", err,
		)
	}

	d.deadLetters.add(DeadLetterEntry{
		Event:       event,
		HandlerName: reg.Name,
		Error:       lastErr,
		Attempts:    reg.MaxRetries + 1,
		FailedAt:    time.Now(),
	})

	d.logger.Error("handler exhausted retries, event dead-lettered",
		"handler", reg.Name,
		"event_type", event.EventType(),
		"aggregate_id", event.AggregateID(),
		"error", lastErr,
	)
}

// runOnce executes a single handler attempt with timeout and panic recovery.
func (d *Dispatcher) runOnce(event shared.Event, reg HandlerRegistration) error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("handler panic recovered",
					"handler", reg.Name,
					"event_type", event.EventType(),
					"panic", r,
					"stack", string(debug.Stack()),
				)
				done <- fmt.Errorf("handler panic: %v", r)
			}
		}()
		done <- reg.Handler(event)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(reg.Timeout):
		return fmt.Errorf("handler timeout after %v", reg.Timeout)
	case <-d.ctx.Done():
		return d.ctx.Err()
	}
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	backoff := float64(d.retryConfig.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= d.retryConfig.BackoffMultiplier
	}

	if backoff > float64(d.retryConfig.MaxBackoff) {
		backoff = float64(d.retryConfig.MaxBackoff)
	}

	return time.Duration(backoff)
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Stop cancels in-flight handler waits. Pending retries are abandoned.
func (d *Dispatcher) Stop() error {
	d.cancel()
	d.logger.Info("dispatcher stopped")
	return nil
}

// DeadLetters returns the events whose handlers exhausted their retries.
func (d *Dispatcher) DeadLetters() []DeadLetterEntry {
	return d.deadLetters.entriesCopy()
}

// ══════════════════════════════════════════════════════════════════════════════
// DEAD LETTERS
// ══════════════════════════════════════════════════════════════════════════════

// DeadLetterEntry records one permanently failed handler execution.
type DeadLetterEntry struct {
	Event       shared.Event
	HandlerName string
	Error       error
	Attempts    int
	FailedAt    time.Time
}

// deadLetterBuffer keeps the most recent failed events up to a fixed size.
type deadLetterBuffer struct {
	mu      sync.Mutex
	entries []DeadLetterEntry
	maxSize int
}

func newDeadLetterBuffer(maxSize int) *deadLetterBuffer {
	return &deadLetterBuffer{
		entries: make([]DeadLetterEntry, 0),
		maxSize: maxSize,
	}
}

func (b *deadLetterBuffer) add(entry DeadLetterEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) >= b.maxSize {
		b.entries = b.entries[1:]
	}
	b.entries = append(b.entries, entry)
}

func (b *deadLetterBuffer) entriesCopy() []DeadLetterEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]DeadLetterEntry, len(b.entries))
	copy(out, b.entries)
	return out
}
