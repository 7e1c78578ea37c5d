package access

import (
	"context"

	"nucleo/internal/access/metrics"
	"nucleo/internal/entity"
	"nucleo/internal/store"
	"nucleo/pkg/platform/sentinel"
)

// TenantFilter enforces row-level isolation for tenant-scoped entity types.
// It narrows predicates and enriches payloads but introduces no error class
// of its own: underlying store errors propagate unchanged, and an
// unauthorized point lookup is answered with the store's own not-found
// sentinel so a caller cannot distinguish "forbidden" from "missing".
type TenantFilter struct {
	next    store.Store
	tenant  string
	metrics *metrics.Metrics
}

var _ store.Store = (*TenantFilter)(nil)

// NewTenantFilter constructs the interceptor for one request's tenant.
func NewTenantFilter(next store.Store, tc *TenantContext, opts ...Option) *TenantFilter {
	cfg := applyOptions(opts)
	return &TenantFilter{next: next, tenant: tc.TenantID, metrics: cfg.metrics}
}

// scoped returns the descriptor when the type is tenant-scoped; every other
// type passes through untouched.
func (f *TenantFilter) scoped(typ entity.Type) (entity.Descriptor, bool) {
	d, ok := entity.Describe(typ)
	return d, ok && d.TenantScoped
}

// readFilter is the permissive predicate for reads: the owning tenant's rows,
// ownerless system rows, and (for shared-capable types) rows flagged shared.
func (f *TenantFilter) readFilter(d entity.Descriptor) store.Where {
	clauses := []store.Where{
		store.Eq(entity.FieldCompanyID, f.tenant),
		store.Eq(entity.FieldCompanyID, nil),
	}
	if d.SharedCapable {
		clauses = append(clauses, store.Eq(entity.FieldShared, true))
	}
	return store.Any(clauses...)
}

// writeFilter is the strict predicate for mutations: exact owner only. Shared
// and ownerless rows are readable but never writable across tenants.
func (f *TenantFilter) writeFilter() store.Where {
	return store.Eq(entity.FieldCompanyID, f.tenant)
}

// injectOwner stamps the current tenant on a create payload that carries no
// owner. A caller-supplied owner is never overridden.
func (f *TenantFilter) injectOwner(data store.Record) store.Record {
	if _, present := data[entity.FieldCompanyID]; present {
		return data
	}
	out := data.Clone()
	if out == nil {
		out = store.Record{}
	}
	out[entity.FieldCompanyID] = f.tenant
	return out
}

// visible applies the point-lookup rule: a fetched row is returned only when
// the tenant owns it, it is ownerless, or its type is shared-capable and the
// row is flagged shared.
func (f *TenantFilter) visible(d entity.Descriptor, rec store.Record) bool {
	owner, present := rec[entity.FieldCompanyID]
	if !present || owner == nil || owner == f.tenant {
		return true
	}
	if d.SharedCapable {
		if shared, _ := rec[entity.FieldShared].(bool); shared {
			return true
		}
	}
	return false
}

// ----------------------------------------------------------------------------
// Reads
// ----------------------------------------------------------------------------

// FindUnique fetches unconditionally and applies the filter afterwards: the
// id-based lookup has no predicate to compose with, and a uniform not-found
// answer is what keeps foreign ids unprobeable.
func (f *TenantFilter) FindUnique(ctx context.Context, typ entity.Type, id string) (store.Record, error) {
	rec, err := f.next.FindUnique(ctx, typ, id)
	if err != nil {
		return nil, err
	}
	d, scoped := f.scoped(typ)
	if !scoped || f.visible(d, rec) {
		return rec, nil
	}
	f.metrics.IncLookupMasked()
	return nil, sentinel.ErrNotFound
}

func (f *TenantFilter) FindFirst(ctx context.Context, typ entity.Type, q store.Query) (store.Record, error) {
	if d, scoped := f.scoped(typ); scoped {
		q.Where = store.All(q.Where, f.readFilter(d))
	}
	return f.next.FindFirst(ctx, typ, q)
}

func (f *TenantFilter) FindMany(ctx context.Context, typ entity.Type, q store.Query) ([]store.Record, error) {
	if d, scoped := f.scoped(typ); scoped {
		q.Where = store.All(q.Where, f.readFilter(d))
	}
	return f.next.FindMany(ctx, typ, q)
}

func (f *TenantFilter) Count(ctx context.Context, typ entity.Type, where store.Where) (int64, error) {
	if d, scoped := f.scoped(typ); scoped {
		where = store.All(where, f.readFilter(d))
	}
	return f.next.Count(ctx, typ, where)
}

func (f *TenantFilter) Aggregate(ctx context.Context, typ entity.Type, agg store.Aggregation) (float64, error) {
	if d, scoped := f.scoped(typ); scoped {
		agg.Where = store.All(agg.Where, f.readFilter(d))
	}
	return f.next.Aggregate(ctx, typ, agg)
}

func (f *TenantFilter) GroupBy(ctx context.Context, typ entity.Type, g store.Grouping) ([]store.Record, error) {
	if d, scoped := f.scoped(typ); scoped {
		g.Where = store.All(g.Where, f.readFilter(d))
	}
	return f.next.GroupBy(ctx, typ, g)
}

// ----------------------------------------------------------------------------
// Writes
// ----------------------------------------------------------------------------

func (f *TenantFilter) Create(ctx context.Context, typ entity.Type, data store.Record) (store.Record, error) {
	if _, scoped := f.scoped(typ); scoped {
		data = f.injectOwner(data)
	}
	return f.next.Create(ctx, typ, data)
}

func (f *TenantFilter) CreateMany(ctx context.Context, typ entity.Type, data []store.Record) (int64, error) {
	if _, scoped := f.scoped(typ); scoped {
		injected := make([]store.Record, len(data))
		for i, rec := range data {
			injected[i] = f.injectOwner(rec)
		}
		data = injected
	}
	return f.next.CreateMany(ctx, typ, data)
}

func (f *TenantFilter) Update(ctx context.Context, typ entity.Type, where store.Where, data store.Record) (store.Record, error) {
	if _, scoped := f.scoped(typ); scoped {
		where = store.All(where, f.writeFilter())
	}
	return f.next.Update(ctx, typ, where, data)
}

func (f *TenantFilter) UpdateMany(ctx context.Context, typ entity.Type, where store.Where, data store.Record) (int64, error) {
	if _, scoped := f.scoped(typ); scoped {
		where = store.All(where, f.writeFilter())
	}
	return f.next.UpdateMany(ctx, typ, where, data)
}

func (f *TenantFilter) Delete(ctx context.Context, typ entity.Type, where store.Where) (store.Record, error) {
	if _, scoped := f.scoped(typ); scoped {
		where = store.All(where, f.writeFilter())
	}
	return f.next.Delete(ctx, typ, where)
}

func (f *TenantFilter) DeleteMany(ctx context.Context, typ entity.Type, where store.Where) (int64, error) {
	if _, scoped := f.scoped(typ); scoped {
		where = store.All(where, f.writeFilter())
	}
	return f.next.DeleteMany(ctx, typ, where)
}

// Upsert combines the write filter for the match branch with owner injection
// for the create branch.
func (f *TenantFilter) Upsert(ctx context.Context, typ entity.Type, where store.Where, create, update store.Record) (store.Record, error) {
	if _, scoped := f.scoped(typ); scoped {
		where = store.All(where, f.writeFilter())
		create = f.injectOwner(create)
	}
	return f.next.Upsert(ctx, typ, where, create, update)
}
