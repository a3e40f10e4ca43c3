package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Domain event types emitted by the engine. The notification layer is
// informed, never consulted: no mark or decision waits on delivery.
const (
	TypeCheckpointMarked = "checkpoint_marked"
	TypeStrategyDecided  = "strategy_decided"
)

// Event is one domain event payload.
type Event struct {
	Type          string
	EventID       string
	CheckpointID  string
	ParticipantID string
	Strategy      string
	OccurredAt    time.Time
}

// Subscriber consumes dispatched events.
type Subscriber func(context.Context, Event)

// Config tunes dispatcher behaviour.
type Config struct {
	Workers    int
	BufferSize int
	Logger     *zap.Logger
}

// Dispatcher fans domain events out to subscribers on a worker pool.
// Publishing never blocks: when the buffer is full the event is dropped
// and logged, keeping mark recording independent of notification load.
type Dispatcher struct {
	workers int
	logger  *zap.Logger

	mu          sync.Mutex
	subscribers []Subscriber
	events      chan Event
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewDispatcher builds an idle dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Dispatcher{
		workers: cfg.Workers,
		logger:  cfg.Logger,
		events:  make(chan Event, cfg.BufferSize),
	}
}

// Subscribe registers a consumer. Must be called before Start.
func (d *Dispatcher) Subscribe(sub Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, sub)
}

// Start begins worker consumption. Safe to call once.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.started = true
	d.logger.Sugar().Infow("event dispatcher started", "workers", d.workers)
}

// Stop cancels workers and waits for them to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.cancel()
	d.mu.Unlock()
	d.wg.Wait()
	d.logger.Sugar().Infow("event dispatcher stopped")
}

// Publish enqueues an event without blocking.
func (d *Dispatcher) Publish(evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	d.mu.Lock()
	started := d.started
	d.mu.Unlock()
	if !started {
		return
	}
	select {
	case d.events <- evt:
	default:
		d.logger.Sugar().Warnw("event buffer full, dropping", "type", evt.Type, "event_id", evt.EventID)
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case evt := <-d.events:
			d.mu.Lock()
			subs := d.subscribers
			d.mu.Unlock()
			for _, sub := range subs {
				sub(d.ctx, evt)
			}
		}
	}
}
