package command

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the scheduler's prometheus collectors.
type Metrics struct {
	Cycles        prometheus.Counter
	CycleDuration prometheus.Histogram
	Active        prometheus.Gauge
	Transitions   *prometheus.CounterVec
	Conflicts     *prometheus.CounterVec
	Faults        *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gorrc_scheduler_cycles_total",
			Help: "Number of scheduler cycles run.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gorrc_scheduler_cycle_seconds",
			Help:    "Time spent inside one scheduler cycle.",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .02, .05},
		}),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gorrc_scheduler_active_commands",
			Help: "Commands active after the last cycle.",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gorrc_command_transitions_total",
			Help: "Command lifecycle transitions by destination state.",
		}, []string{"state"}),
		Conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gorrc_command_conflicts_total",
			Help: "Schedule requests refused because a subsystem was held non-interruptibly.",
		}, []string{"command"}),
		Faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gorrc_command_faults_total",
			Help: "Errors and panics raised by commands, by phase.",
		}, []string{"command", "phase"}),
	}

	if reg != nil {
		reg.MustRegister(m.Cycles, m.CycleDuration, m.Active, m.Transitions, m.Conflicts, m.Faults)
	}
	return m
}
