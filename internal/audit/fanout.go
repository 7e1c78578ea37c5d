package audit

import (
	"context"
	"errors"
	"fmt"
)

// FanoutSink delivers every record to all member sinks. Delivery is
// best-effort per member: one failing sink does not stop the others, and the
// joined error reports every failure.
type FanoutSink struct {
	sinks []Sink
}

// Fanout builds a sink delivering to all the given sinks. A single member is
// returned unwrapped.
func Fanout(sinks ...Sink) Sink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return &FanoutSink{sinks: sinks}
}

var _ Sink = (*FanoutSink)(nil)

func (f *FanoutSink) Create(ctx context.Context, rec Record) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Create(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("fanout member %T: %w", sink, err))
		}
	}
	return errors.Join(errs...)
}
