// Package access layers tenant isolation and audit recording over a raw
// store. Handlers never talk to the store directly; they build a Layer per
// request from the authenticated context and get back a store.Store whose
// reads are tenant-scoped and whose writes leave an audit trail.
package access

import (
	"log/slog"

	"nucleo/internal/access/metrics"
	"nucleo/internal/audit"
	"nucleo/internal/store"
)

type config struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option customizes interceptor construction.
type Option func(*config)

func applyOptions(opts []Option) config {
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithLogger routes sink-failure and panic logs through the given logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = logger }
}

// WithMetrics attaches the access-layer counters. Construct Metrics once per
// process; the collectors register globally.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *config) { cfg.metrics = m }
}

// WrapWithTenantFilter scopes every operation to the caller's company. A nil
// or empty tenant context means an unscoped caller and returns next as-is.
func WrapWithTenantFilter(next store.Store, tc *TenantContext, opts ...Option) store.Store {
	if tc == nil || tc.TenantID == "" {
		return next
	}
	return NewTenantFilter(next, tc, opts...)
}

// WrapWithAudit records mutations on audited entity types. Without an actor
// or a sink there is nothing to attribute or nowhere to write, so next is
// returned as-is.
func WrapWithAudit(next store.Store, actx *AuditContext, sink audit.Sink, opts ...Option) store.Store {
	if actx == nil || sink == nil {
		return next
	}
	return NewAuditInterceptor(next, actx, sink, opts...)
}

// Layer is the per-request composition: audit outermost so the trail sees the
// caller's plain arguments, tenant filter innermost so every store call the
// audit interceptor makes, including its baseline fetches, stays scoped.
type Layer struct {
	store.Store

	auditor *AuditInterceptor
}

// New builds the composed per-request store.
func New(base store.Store, tc *TenantContext, actx *AuditContext, sink audit.Sink, opts ...Option) *Layer {
	scoped := WrapWithTenantFilter(base, tc, opts...)
	wrapped := WrapWithAudit(scoped, actx, sink, opts...)
	layer := &Layer{Store: wrapped}
	if auditor, ok := wrapped.(*AuditInterceptor); ok {
		layer.auditor = auditor
	}
	return layer
}

// Flush waits for in-flight audit writes. Safe to call when auditing was
// skipped.
func (l *Layer) Flush() {
	if l.auditor != nil {
		l.auditor.Flush()
	}
}
