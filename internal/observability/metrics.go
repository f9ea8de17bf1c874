package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Allocation outcomes reported on lead_allocations_total.
const (
	OutcomeDistributed  = "distributed"
	OutcomeNoop         = "noop"
	OutcomeNoCandidates = "no_candidates"
	OutcomeNoCapacity   = "no_capacity"
	OutcomeError        = "error"
)

// Reservation results reported on capacity_reservations_total.
const (
	ReservationReserved      = "reserved"
	ReservationQuotaExceeded = "quota_exceeded"
	ReservationError         = "error"
)

var (
	// AllocationsTotal counts allocation runs by outcome.
	AllocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_allocations_total",
			Help: "Lead allocation runs partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	// AssignmentsCreatedTotal counts assignment rows written per strategy.
	AssignmentsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_assignments_created_total",
			Help: "Lead assignments created partitioned by matching strategy.",
		},
		[]string{"strategy"},
	)

	// ReservationsTotal counts capacity reservation attempts by result.
	ReservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capacity_reservations_total",
			Help: "Capacity reservation attempts partitioned by result.",
		},
		[]string{"result"},
	)

	// AllocationDuration observes the wall time of an allocation run.
	AllocationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lead_allocation_duration_seconds",
			Help:    "Lead allocation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(AllocationsTotal, AssignmentsCreatedTotal, ReservationsTotal, AllocationDuration)
}
