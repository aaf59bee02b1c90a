package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tasktracker/task-api/internal/core/domain"
	"github.com/tasktracker/task-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 5 * time.Second
)

// Dispatcher writes task activity events to the audit log on a fixed set
// of workers. Events are sharded by task id so each task's events are
// written in the order they were recorded.
type Dispatcher struct {
	workers []chan domain.TaskEvent
	repo    ports.TaskEventRepository
	log     zerolog.Logger
	onDrop  func()

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDropHook registers fn to be called for every event dropped because
// its shard was full or the dispatcher was stopped.
func WithDropHook(fn func()) Option {
	return func(d *Dispatcher) { d.onDrop = fn }
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, repo ports.TaskEventRepository, log zerolog.Logger, opts ...Option) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.TaskEvent, numWorkers),
		repo:    repo,
		log:     log,
		onDrop:  func() {},
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.TaskEvent, channelBuffer)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the worker goroutines. Writes use a context detached from
// ctx's cancellation so Stop can drain queued events.
func (d *Dispatcher) Start(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(base, i, ch)
	}
}

// Record enqueues event without blocking. When the shard is full the event
// is dropped and logged.
func (d *Dispatcher) Record(event domain.TaskEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, "dispatcher stopped")
		return
	}

	select {
	case d.workers[d.shardIndex(event.TaskID)] <- event:
	default:
		d.drop(event, "audit queue full")
	}
}

// Stop closes the shards and waits for queued events to be written.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) drop(event domain.TaskEvent, reason string) {
	d.onDrop()
	d.log.Warn().
		Int64("task_id", event.TaskID).
		Str("action", string(event.Action)).
		Msg(reason)
}

// shardIndex maps a task id deterministically to a worker index.
func (d *Dispatcher) shardIndex(taskID int64) int {
	idx := taskID % int64(len(d.workers))
	if idx < 0 {
		idx = -idx
	}
	return int(idx)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.TaskEvent) {
	defer d.wg.Done()

	for event := range ch {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := d.repo.InsertEvent(writeCtx, &event)
		cancel()
		if err != nil {
			d.log.Error().Err(err).
				Int64("task_id", event.TaskID).
				Str("action", string(event.Action)).
				Int("worker_id", id).
				Msg("audit event write failed")
		}
	}
}
