package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(sweepTransitionsTotal) }

var sweepTransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "spotlight_sweep_transitions_total",
		Help: "Total number of transitions applied by the sweep, labeled by kind.",
	},
	[]string{"kind"}, // 'expired', 'settled', 'activated', 'completed'
)

func AddSweepTransitions(expired, settled, activated, completed int) {
	sweepTransitionsTotal.WithLabelValues("expired").Add(float64(expired))
	sweepTransitionsTotal.WithLabelValues("settled").Add(float64(settled))
	sweepTransitionsTotal.WithLabelValues("activated").Add(float64(activated))
	sweepTransitionsTotal.WithLabelValues("completed").Add(float64(completed))
}
