// Package store defines the generic entity store the access layer wraps. The
// interface is deliberately wide (the Prisma-style operation vocabulary) so a
// single pair of interceptors can cover every data path in the application.
//
// Implementations are interface-driven to keep the access layer testable and
// to allow swapping in-memory and PostgreSQL persistence without rewiring
// business code.
package store

import (
	"context"

	"nucleo/internal/entity"
)

// Record is a schema-generic entity document. Concrete business types live
// above this layer.
type Record map[string]any

// ID returns the record's id field, or empty when absent.
func (r Record) ID() string {
	id, _ := r[entity.FieldID].(string)
	return id
}

// Clone returns a copy deep enough that callers cannot alias store state:
// nested maps and slices are copied, scalar leaves are shared.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case Record:
		return map[string]any(t.Clone())
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}

// Order sorts a result set by one field.
type Order struct {
	Field string
	Desc  bool
}

// Query is the argument bundle for multi-result reads.
type Query struct {
	Where   Where
	OrderBy []Order
	Limit   int
	Offset  int
}

// AggregateFunc selects the aggregate computed over a numeric field.
type AggregateFunc string

const (
	AggSum AggregateFunc = "sum"
	AggAvg AggregateFunc = "avg"
	AggMin AggregateFunc = "min"
	AggMax AggregateFunc = "max"
)

// Aggregation is the argument bundle for Aggregate.
type Aggregation struct {
	Where Where
	Field string
	Func  AggregateFunc
}

// Grouping is the argument bundle for GroupBy. Each result record carries the
// grouping key under "key" and the group size under "count".
type Grouping struct {
	Where Where
	By    string
}

// Store is the persistent data-access contract. Singular lookups and writes
// that match nothing return sentinel.ErrNotFound; plural variants report an
// affected count of zero instead. All other errors are backend errors and
// propagate unchanged through the access layer.
type Store interface {
	FindUnique(ctx context.Context, typ entity.Type, id string) (Record, error)
	FindFirst(ctx context.Context, typ entity.Type, q Query) (Record, error)
	FindMany(ctx context.Context, typ entity.Type, q Query) ([]Record, error)
	Count(ctx context.Context, typ entity.Type, where Where) (int64, error)
	Aggregate(ctx context.Context, typ entity.Type, agg Aggregation) (float64, error)
	GroupBy(ctx context.Context, typ entity.Type, g Grouping) ([]Record, error)

	Create(ctx context.Context, typ entity.Type, data Record) (Record, error)
	CreateMany(ctx context.Context, typ entity.Type, data []Record) (int64, error)
	Update(ctx context.Context, typ entity.Type, where Where, data Record) (Record, error)
	UpdateMany(ctx context.Context, typ entity.Type, where Where, data Record) (int64, error)
	Delete(ctx context.Context, typ entity.Type, where Where) (Record, error)
	DeleteMany(ctx context.Context, typ entity.Type, where Where) (int64, error)
	Upsert(ctx context.Context, typ entity.Type, where Where, create, update Record) (Record, error)
}
