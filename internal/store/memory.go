package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"nucleo/internal/entity"
	"nucleo/pkg/platform/sentinel"
)

// Memory is an in-memory Store. It favors clarity over performance and backs
// unit tests as well as single-process deployments without PostgreSQL.
type Memory struct {
	mu      sync.RWMutex
	tables  map[entity.Type]map[string]Record
	inserts map[entity.Type][]string
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tables:  make(map[entity.Type]map[string]Record),
		inserts: make(map[entity.Type][]string),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) FindUnique(_ context.Context, typ entity.Type, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.tables[typ][id]; ok {
		return rec.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (m *Memory) FindFirst(_ context.Context, typ entity.Type, q Query) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matches := m.matchLocked(typ, q.Where)
	sortRecords(matches, q.OrderBy)
	if len(matches) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return matches[0].Clone(), nil
}

func (m *Memory) FindMany(_ context.Context, typ entity.Type, q Query) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matches := m.matchLocked(typ, q.Where)
	sortRecords(matches, q.OrderBy)
	matches = window(matches, q.Offset, q.Limit)
	out := make([]Record, len(matches))
	for i, rec := range matches {
		out[i] = rec.Clone()
	}
	return out, nil
}

func (m *Memory) Count(_ context.Context, typ entity.Type, where Where) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.matchLocked(typ, where))), nil
}

func (m *Memory) Aggregate(_ context.Context, typ entity.Type, agg Aggregation) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		sum   float64
		count int
		min   float64
		max   float64
	)
	for _, rec := range m.matchLocked(typ, agg.Where) {
		v, ok := toFloat(rec[agg.Field])
		if !ok {
			continue
		}
		if count == 0 {
			min, max = v, v
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
		count++
	}
	if count == 0 {
		return 0, nil
	}
	switch agg.Func {
	case AggAvg:
		return sum / float64(count), nil
	case AggMin:
		return min, nil
	case AggMax:
		return max, nil
	default:
		return sum, nil
	}
}

func (m *Memory) GroupBy(_ context.Context, typ entity.Type, g Grouping) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[any]int64)
	var keys []any
	for _, rec := range m.matchLocked(typ, g.Where) {
		key := rec[g.By]
		if _, seen := counts[key]; !seen {
			keys = append(keys, key)
		}
		counts[key]++
	}
	out := make([]Record, 0, len(keys))
	for _, key := range keys {
		out = append(out, Record{"key": key, "count": counts[key]})
	}
	return out, nil
}

func (m *Memory) Create(_ context.Context, typ entity.Type, data Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(typ, data)
}

func (m *Memory) CreateMany(_ context.Context, typ entity.Type, data []Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range data {
		if _, err := m.createLocked(typ, rec); err != nil {
			return 0, err
		}
	}
	return int64(len(data)), nil
}

func (m *Memory) Update(_ context.Context, typ entity.Type, where Where, data Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matches := m.matchLocked(typ, where)
	if len(matches) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return m.mergeLocked(typ, matches[0], data), nil
}

func (m *Memory) UpdateMany(_ context.Context, typ entity.Type, where Where, data Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matches := m.matchLocked(typ, where)
	for _, rec := range matches {
		m.mergeLocked(typ, rec, data)
	}
	return int64(len(matches)), nil
}

func (m *Memory) Delete(_ context.Context, typ entity.Type, where Where) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matches := m.matchLocked(typ, where)
	if len(matches) == 0 {
		return nil, sentinel.ErrNotFound
	}
	removed := matches[0]
	m.removeLocked(typ, removed.ID())
	return removed.Clone(), nil
}

func (m *Memory) DeleteMany(_ context.Context, typ entity.Type, where Where) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matches := m.matchLocked(typ, where)
	for _, rec := range matches {
		m.removeLocked(typ, rec.ID())
	}
	return int64(len(matches)), nil
}

func (m *Memory) Upsert(_ context.Context, typ entity.Type, where Where, create, update Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matches := m.matchLocked(typ, where)
	if len(matches) > 0 {
		return m.mergeLocked(typ, matches[0], update), nil
	}
	return m.createLocked(typ, create)
}

// matchLocked returns live (unclosed) records in insertion order.
func (m *Memory) matchLocked(typ entity.Type, where Where) []Record {
	var out []Record
	for _, id := range m.inserts[typ] {
		rec, ok := m.tables[typ][id]
		if !ok {
			continue
		}
		if where.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (m *Memory) createLocked(typ entity.Type, data Record) (Record, error) {
	rec := data.Clone()
	if rec == nil {
		rec = Record{}
	}
	id := rec.ID()
	if id == "" {
		id = uuid.NewString()
		rec[entity.FieldID] = id
	}
	if _, exists := m.tables[typ][id]; exists {
		return nil, sentinel.ErrConflict
	}
	if m.tables[typ] == nil {
		m.tables[typ] = make(map[string]Record)
	}
	m.tables[typ][id] = rec
	m.inserts[typ] = append(m.inserts[typ], id)
	return rec.Clone(), nil
}

func (m *Memory) mergeLocked(typ entity.Type, target Record, data Record) Record {
	for k, v := range data {
		if k == entity.FieldID {
			continue
		}
		target[k] = cloneValue(v)
	}
	m.tables[typ][target.ID()] = target
	return target.Clone()
}

func (m *Memory) removeLocked(typ entity.Type, id string) {
	delete(m.tables[typ], id)
	ids := m.inserts[typ]
	for i, existing := range ids {
		if existing == id {
			m.inserts[typ] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

func sortRecords(recs []Record, orderBy []Order) {
	if len(orderBy) == 0 {
		return
	}
	sort.SliceStable(recs, func(i, j int) bool {
		for _, ord := range orderBy {
			cmp, ok := compareValues(recs[i][ord.Field], recs[j][ord.Field])
			if !ok || cmp == 0 {
				continue
			}
			if ord.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func window(recs []Record, offset, limit int) []Record {
	if offset > 0 {
		if offset >= len(recs) {
			return nil
		}
		recs = recs[offset:]
	}
	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	return recs
}
