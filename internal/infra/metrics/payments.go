package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(paymentVerificationsTotal) }

var paymentVerificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "spotlight_payment_verifications_total",
		Help: "Total number of payment verification attempts, labeled by outcome.",
	},
	[]string{"outcome"}, // 'confirmed', 'pending', 'unavailable', 'error'
)

func IncPaymentVerification(outcome string) {
	paymentVerificationsTotal.WithLabelValues(outcome).Inc()
}
