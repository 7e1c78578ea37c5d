package access

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"nucleo/internal/access/metrics"
	"nucleo/internal/audit"
)

const emitTimeout = 30 * time.Second

// emitter performs the fire-and-forget audit write: one detached goroutine
// per record with its own error boundary. Emit returns nothing and cannot
// fail observably; sink errors and panics are logged and counted, never
// propagated. Wait drains in-flight writes so graceful shutdown and tests
// don't race the trail.
type emitter struct {
	sink    audit.Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

func newEmitter(sink audit.Sink, logger *slog.Logger, m *metrics.Metrics) *emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &emitter{sink: sink, logger: logger, metrics: m}
}

func (e *emitter) Emit(rec audit.Record) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("audit emit panicked",
					"panic", r,
					"entity_type", rec.EntityType,
					"entity_id", rec.EntityID,
					"action", rec.Action,
				)
			}
		}()

		// Detached from the request context on purpose: the primary
		// operation has already returned and its cancellation must not
		// take the audit write down with it.
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()

		if err := e.sink.Create(ctx, rec); err != nil {
			e.metrics.IncSinkFailure()
			e.logger.Error("audit write failed",
				"error", err,
				"entity_type", rec.EntityType,
				"entity_id", rec.EntityID,
				"action", rec.Action,
			)
			return
		}
		e.metrics.IncEmitted(string(rec.Action))
	}()
}

// Wait blocks until every emitted record has been handed to the sink.
func (e *emitter) Wait() {
	e.wg.Wait()
}
