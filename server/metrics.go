package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zeu5/taxi-rl/types"
)

var knownCommands = map[string]bool{
	types.CommandInit:           true,
	types.CommandConfigureAgent: true,
	types.CommandStep:           true,
	types.CommandStartTraining:  true,
	types.CommandStopTraining:   true,
	types.CommandSetSpeed:       true,
	types.CommandReset:          true,
	types.CommandGetState:       true,
	types.CommandGetQValues:     true,
	types.CommandGetFullQTable:  true,
	types.CommandSaveAgent:      true,
	types.CommandLoadAgent:      true,
}

type Metrics struct {
	Sessions prometheus.Gauge
	Commands *prometheus.CounterVec
	Events   *prometheus.CounterVec
	Dropped  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taxi",
			Name:      "sessions_active",
			Help:      "Number of connected sessions",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxi",
			Name:      "commands_total",
			Help:      "Commands received by name",
		}, []string{"command"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxi",
			Name:      "events_total",
			Help:      "Events sent by name",
		}, []string{"event"}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taxi",
			Name:      "connections_dropped_total",
			Help:      "Connections closed because their outbound queue was full",
		}),
	}
	reg.MustRegister(m.Sessions, m.Commands, m.Events, m.Dropped)
	return m
}

func (m *Metrics) command(name string) {
	if !knownCommands[name] {
		name = "unknown"
	}
	m.Commands.WithLabelValues(name).Inc()
}
