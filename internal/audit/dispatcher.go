package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Dispatcher decouples record acceptance from sink latency with a buffered
// channel and a single background worker. Put it in front of slow sinks
// (Kafka, PostgreSQL over WAN) so the access layer's emit goroutines return
// immediately. When the buffer is full records are dropped and counted rather
// than blocking.
type Dispatcher struct {
	sink    Sink
	logger  *slog.Logger
	ch      chan Record
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64
	once    sync.Once
}

const dispatchTimeout = 10 * time.Second

// NewDispatcher starts the worker goroutine. Close drains the buffer and
// stops it.
func NewDispatcher(sink Sink, buffer int, logger *slog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &Dispatcher{
		sink:   sink,
		logger: logger,
		ch:     make(chan Record, buffer),
		done:   make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

var _ Sink = (*Dispatcher)(nil)

// Create enqueues the record. It never blocks: a full buffer drops the record
// and increments the drop counter.
func (d *Dispatcher) Create(_ context.Context, rec Record) error {
	select {
	case d.ch <- rec:
	case <-d.done:
		d.dropped.Add(1)
	default:
		d.dropped.Add(1)
	}
	return nil
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case rec := <-d.ch:
			d.deliver(rec)
		case <-d.done:
			// Drain whatever is already buffered before exiting.
			for {
				select {
				case rec := <-d.ch:
					d.deliver(rec)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	if err := d.sink.Create(ctx, rec); err != nil && d.logger != nil {
		d.logger.Error("audit dispatch failed",
			"error", err,
			"entity_type", rec.EntityType,
			"entity_id", rec.EntityID,
			"action", rec.Action,
		)
	}
}

// Dropped reports how many records were discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Close stops the worker after draining buffered records. Safe to call twice.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.done)
		d.wg.Wait()
	})
}
