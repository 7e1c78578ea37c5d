// Package metrics provides observability for the access layer. Construct one
// Metrics per process; interceptors accept a nil Metrics and skip recording.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks audit emission health and tenant-filter decisions.
type Metrics struct {
	AuditEmitted      *prometheus.CounterVec
	AuditSinkFailures prometheus.Counter
	AuditSuppressed   prometheus.Counter
	LookupsMasked     prometheus.Counter
}

// New creates a Metrics instance with all access-layer metrics registered on
// the default registry.
func New() *Metrics {
	return &Metrics{
		AuditEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nucleo_audit_records_emitted_total",
			Help: "Audit records handed to the sink, by action",
		}, []string{"action"}),
		AuditSinkFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nucleo_audit_sink_failures_total",
			Help: "Audit sink writes that failed (record lost, primary operation unaffected)",
		}),
		AuditSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nucleo_audit_updates_suppressed_total",
			Help: "Updates that produced no audit record because nothing changed",
		}),
		LookupsMasked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nucleo_tenant_lookups_masked_total",
			Help: "Point lookups answered not-found because the row belongs to another tenant",
		}),
	}
}

// IncEmitted records a successful audit write.
func (m *Metrics) IncEmitted(action string) {
	if m == nil {
		return
	}
	m.AuditEmitted.WithLabelValues(action).Inc()
}

// IncSinkFailure records a failed audit write.
func (m *Metrics) IncSinkFailure() {
	if m == nil {
		return
	}
	m.AuditSinkFailures.Inc()
}

// IncSuppressed records an update whose diff was empty.
func (m *Metrics) IncSuppressed() {
	if m == nil {
		return
	}
	m.AuditSuppressed.Inc()
}

// IncLookupMasked records a cross-tenant point lookup masked as not-found.
func (m *Metrics) IncLookupMasked() {
	if m == nil {
		return
	}
	m.LookupsMasked.Inc()
}
