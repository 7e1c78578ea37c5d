package access

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"nucleo/internal/access/metrics"
	"nucleo/internal/audit"
	"nucleo/internal/entity"
	"nucleo/internal/store"
	"nucleo/pkg/requestcontext"
)

// entityCodeFields are probed in order for a human label; first non-empty
// string wins.
var entityCodeFields = []string{"code", "number", "name", "email"}

// AuditInterceptor records every create, update, delete, and upsert against
// an audited entity type. The primary operation always runs and returns
// exactly as it would without auditing; the record write happens on a
// detached goroutine and its failure is logged, never surfaced.
type AuditInterceptor struct {
	next    store.Store
	actx    *AuditContext
	emitter *emitter
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

var _ store.Store = (*AuditInterceptor)(nil)

// NewAuditInterceptor constructs the interceptor for one request's actor.
func NewAuditInterceptor(next store.Store, actx *AuditContext, sink audit.Sink, opts ...Option) *AuditInterceptor {
	cfg := applyOptions(opts)
	return &AuditInterceptor{
		next:    next,
		actx:    actx,
		emitter: newEmitter(sink, cfg.logger, cfg.metrics),
		metrics: cfg.metrics,
		tracer:  otel.Tracer("nucleo/internal/access"),
	}
}

// Flush blocks until every in-flight audit write has reached the sink. Main
// calls it on shutdown; tests call it instead of sleeping.
func (a *AuditInterceptor) Flush() {
	a.emitter.Wait()
}

func (a *AuditInterceptor) audited(typ entity.Type) bool {
	d, ok := entity.Describe(typ)
	return ok && d.Audited
}

// ----------------------------------------------------------------------------
// Reads pass through untouched.
// ----------------------------------------------------------------------------

func (a *AuditInterceptor) FindUnique(ctx context.Context, typ entity.Type, id string) (store.Record, error) {
	return a.next.FindUnique(ctx, typ, id)
}

func (a *AuditInterceptor) FindFirst(ctx context.Context, typ entity.Type, q store.Query) (store.Record, error) {
	return a.next.FindFirst(ctx, typ, q)
}

func (a *AuditInterceptor) FindMany(ctx context.Context, typ entity.Type, q store.Query) ([]store.Record, error) {
	return a.next.FindMany(ctx, typ, q)
}

func (a *AuditInterceptor) Count(ctx context.Context, typ entity.Type, where store.Where) (int64, error) {
	return a.next.Count(ctx, typ, where)
}

func (a *AuditInterceptor) Aggregate(ctx context.Context, typ entity.Type, agg store.Aggregation) (float64, error) {
	return a.next.Aggregate(ctx, typ, agg)
}

func (a *AuditInterceptor) GroupBy(ctx context.Context, typ entity.Type, g store.Grouping) ([]store.Record, error) {
	return a.next.GroupBy(ctx, typ, g)
}

// ----------------------------------------------------------------------------
// Audited mutations
// ----------------------------------------------------------------------------

func (a *AuditInterceptor) Create(ctx context.Context, typ entity.Type, data store.Record) (store.Record, error) {
	if !a.audited(typ) {
		return a.next.Create(ctx, typ, data)
	}
	ctx, span := a.startSpan(ctx, typ, audit.ActionCreate)
	defer span.End()

	created, err := a.next.Create(ctx, typ, data)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	snapshot := redactSnapshot(created)
	a.emitter.Emit(a.record(ctx, typ, audit.ActionCreate, created, nil, snapshot, snapshotKeys(snapshot)))
	return created, nil
}

// CreateMany is not audited: bulk imports write one row per record and the
// trail for them is the importer's job, matching the singular-only contract.
func (a *AuditInterceptor) CreateMany(ctx context.Context, typ entity.Type, data []store.Record) (int64, error) {
	return a.next.CreateMany(ctx, typ, data)
}

func (a *AuditInterceptor) Update(ctx context.Context, typ entity.Type, where store.Where, data store.Record) (store.Record, error) {
	if !a.audited(typ) {
		return a.next.Update(ctx, typ, where, data)
	}
	ctx, span := a.startSpan(ctx, typ, audit.ActionUpdate)
	defer span.End()

	// Best-effort baseline. The fetch and the mutation are separate store
	// calls with no enclosing transaction, so a concurrent writer can slip
	// between them and leave a stale baseline in the record.
	oldValues, baselineOK := a.baseline(ctx, typ, where)

	updated, err := a.next.Update(ctx, typ, where, data)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !baselineOK || !sameEntity(oldValues, updated) {
		// No baseline, no diff, no record. Known audit loss on transient
		// fetch failure or when the fetch landed on a row the mutation
		// never touched; tracked by the suppression counter.
		a.metrics.IncSuppressed()
		return updated, nil
	}

	newValues := redactSnapshot(updated)
	changed := changedFields(oldValues, newValues)
	if len(changed) == 0 {
		// Re-submitting identical values must not pollute the trail.
		a.metrics.IncSuppressed()
		return updated, nil
	}

	a.emitter.Emit(a.record(ctx, typ, audit.ActionUpdate, updated, oldValues, newValues, changed))
	return updated, nil
}

func (a *AuditInterceptor) UpdateMany(ctx context.Context, typ entity.Type, where store.Where, data store.Record) (int64, error) {
	return a.next.UpdateMany(ctx, typ, where, data)
}

func (a *AuditInterceptor) Delete(ctx context.Context, typ entity.Type, where store.Where) (store.Record, error) {
	if !a.audited(typ) {
		return a.next.Delete(ctx, typ, where)
	}
	ctx, span := a.startSpan(ctx, typ, audit.ActionDelete)
	defer span.End()

	oldValues, baselineOK := a.baseline(ctx, typ, where)

	deleted, err := a.next.Delete(ctx, typ, where)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !baselineOK || !sameEntity(oldValues, deleted) {
		// Nothing to record without a pre-delete snapshot of the row that
		// was actually removed.
		a.metrics.IncSuppressed()
		return deleted, nil
	}

	a.emitter.Emit(a.record(ctx, typ, audit.ActionDelete, deleted, oldValues, nil, snapshotKeys(oldValues)))
	return deleted, nil
}

func (a *AuditInterceptor) DeleteMany(ctx context.Context, typ entity.Type, where store.Where) (int64, error) {
	return a.next.DeleteMany(ctx, typ, where)
}

// Upsert audits as an update when the filter matched an existing row and as a
// create otherwise, decided by the best-effort baseline fetch cross-checked
// against the row the store returned.
func (a *AuditInterceptor) Upsert(ctx context.Context, typ entity.Type, where store.Where, create, update store.Record) (store.Record, error) {
	if !a.audited(typ) {
		return a.next.Upsert(ctx, typ, where, create, update)
	}
	ctx, span := a.startSpan(ctx, typ, "UPSERT")
	defer span.End()

	oldValues, existed := a.baseline(ctx, typ, where)

	result, err := a.next.Upsert(ctx, typ, where, create, update)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	newValues := redactSnapshot(result)
	if !existed || !sameEntity(oldValues, result) {
		a.emitter.Emit(a.record(ctx, typ, audit.ActionCreate, result, nil, newValues, snapshotKeys(newValues)))
		return result, nil
	}
	changed := changedFields(oldValues, newValues)
	if len(changed) == 0 {
		a.metrics.IncSuppressed()
		return result, nil
	}
	a.emitter.Emit(a.record(ctx, typ, audit.ActionUpdate, result, oldValues, newValues, changed))
	return result, nil
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// baseline fetches the redacted pre-mutation snapshot through the wrapped
// store. Any failure is swallowed: (nil, false) means "no baseline".
func (a *AuditInterceptor) baseline(ctx context.Context, typ entity.Type, where store.Where) (map[string]any, bool) {
	current, err := a.next.FindFirst(ctx, typ, store.Query{Where: where})
	if err != nil {
		return nil, false
	}
	return redactSnapshot(current), true
}

// sameEntity reports whether the baseline snapshot and the mutation result
// describe the same row. The pre-mutation fetch runs under read scoping,
// which also admits ownerless and shared foreign rows, while the mutation
// matches under write scoping; the fetch can therefore land on a readable
// row the mutation never touched, and its snapshot must not be attributed
// to the result.
func sameEntity(snapshot map[string]any, result store.Record) bool {
	id, _ := snapshot[entity.FieldID].(string)
	return id != "" && id == result.ID()
}

func (a *AuditInterceptor) record(
	ctx context.Context,
	typ entity.Type,
	action audit.Action,
	result store.Record,
	oldValues, newValues map[string]any,
	changed []string,
) audit.Record {
	entityID := result.ID()
	code := entityCode(result)
	description := action.Verb() + " " + string(typ)
	if code != "" {
		description += " " + code
	}

	return audit.Record{
		UserID:        a.actx.UserID,
		UserEmail:     a.actx.UserEmail,
		UserName:      a.actx.UserName,
		CompanyID:     a.actx.CompanyID,
		CompanyName:   a.actx.CompanyName,
		Action:        action,
		EntityType:    typ,
		EntityID:      entityID,
		EntityCode:    code,
		Description:   description,
		OldValues:     oldValues,
		NewValues:     newValues,
		ChangedFields: changed,
		IPAddress:     a.actx.IPAddress,
		UserAgent:     a.actx.UserAgent,
		Device:        a.actx.Device,
		RequestPath:   a.actx.RequestPath,
		RequestMethod: a.actx.RequestMethod,
		CreatedAt:     requestcontext.Now(ctx),
	}
}

// entityCode probes the well-known label fields; redacted or non-string
// values never qualify.
func entityCode(rec store.Record) string {
	for _, field := range entityCodeFields {
		if v, ok := rec[field].(string); ok && v != "" && v != RedactionMarker {
			return v
		}
	}
	return ""
}

func (a *AuditInterceptor) startSpan(ctx context.Context, typ entity.Type, action audit.Action) (context.Context, trace.Span) {
	return a.tracer.Start(ctx, "access.audit",
		trace.WithAttributes(
			attribute.String("entity.type", string(typ)),
			attribute.String("audit.action", string(action)),
		))
}
