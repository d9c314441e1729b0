package reconcile

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Mutations *prometheus.CounterVec
	Writes    *prometheus.CounterVec
	Deltas    *prometheus.CounterVec
	Pending   prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "room_optimistic_mutations_total",
				Help: "Optimistic mutations applied to the room cache",
			},
			[]string{"op"},
		),
		Writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "room_backend_writes_total",
				Help: "Backend writes by outcome",
			},
			[]string{"op", "result"},
		),
		Deltas: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "room_realtime_deltas_total",
				Help: "Realtime change events applied",
			},
			[]string{"entity"},
		),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "room_pending_writes",
			Help: "Backend writes dispatched and not yet returned",
		}),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(m.Mutations, m.Writes, m.Deltas, m.Pending)
}
