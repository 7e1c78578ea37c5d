package audit

import (
	"context"
	"sync"
)

// Sink accepts finished audit records. Implementations are append-only; there
// is deliberately no read, update, or delete surface here. The access layer
// calls Create from a detached goroutine and swallows any error, so a slow or
// failing sink can never affect a primary operation.
type Sink interface {
	Create(ctx context.Context, rec Record) error
}

// Memory is an in-memory Sink for tests and single-process setups.
type Memory struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemory constructs an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

var _ Sink = (*Memory)(nil)

func (m *Memory) Create(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Records returns a copy of everything written so far.
func (m *Memory) Records() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Record(nil), m.records...)
}

// Len returns the number of records written so far.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
