package metrics

import (
	"marketplace-spotlight/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		requestTransitionsTotal,
		requestsTotal,
	)
}

var (
	requestTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotlight_request_transitions_total",
			Help: "Total number of request lifecycle transitions, labeled by target status.",
		},
		[]string{"to"},
	)

	requestsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "spotlight_requests_total",
			Help: "Current number of spotlight requests by status.",
		},
		[]string{"status"},
	)
)

func IncRequestTransition(to model.RequestStatus) {
	requestTransitionsTotal.WithLabelValues(string(to)).Inc()
}

func SetRequestsTotal(counts map[model.RequestStatus]int) {
	statuses := []model.RequestStatus{
		model.RequestStatusPending,
		model.RequestStatusApproved,
		model.RequestStatusRejected,
		model.RequestStatusPaid,
		model.RequestStatusActive,
		model.RequestStatusCompleted,
		model.RequestStatusCancelled,
		model.RequestStatusExpired,
	}
	// Every status is written each pass. Counts queries emit no row for a
	// status with zero requests, so a missing key must reset the gauge.
	for _, status := range statuses {
		requestsTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
