package simulator

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	requests   *prometheus.CounterVec
	handshakes *prometheus.CounterVec
	sessions   prometheus.Gauge
	joins      *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "espprov_sim",
			Name:      "requests_total",
			Help:      "Requests handled per endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "espprov_sim",
			Name:      "sessions_established_total",
			Help:      "Completed session handshakes per security scheme.",
		}, []string{"scheme"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "espprov_sim",
			Name:      "sessions",
			Help:      "Open protocomm sessions.",
		}),
		joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "espprov_sim",
			Name:      "network_joins_total",
			Help:      "Resolved network joins per network kind and result.",
		}, []string{"network", "result"}),
	}
	reg.MustRegister(m.requests, m.handshakes, m.sessions, m.joins)
	return m
}
