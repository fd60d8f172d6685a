package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AuditRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "storaged", Name: "audit_records_total", Help: "Audit records appended, by source collection and operation."},
		[]string{"collection", "operation"},
	)
	AuditFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "storaged", Name: "audit_failures_total", Help: "Audit events dropped or subscriptions lost, by source collection."},
		[]string{"collection"},
	)
	PlacementAssignments = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "storaged", Name: "placement_assignments_total", Help: "Completed bin assignments."},
	)
	PlacementEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "storaged", Name: "placement_evictions_total", Help: "Bins evicted from a cell by a new assignment."},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "storaged", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "storaged", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(AuditRecords)
	reg.MustRegister(AuditFailures)
	reg.MustRegister(PlacementAssignments)
	reg.MustRegister(PlacementEvictions)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
