package simserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"factorysim/sim"
)

var (
	metricDecisionsServed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "factorysim",
		Name:      "decisions_served_total",
		Help:      "Number of decision-point snapshots returned to controllers.",
	})
	metricResets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "factorysim",
		Name:      "resets_total",
		Help:      "Number of times the engine was reset via the API.",
	})
	metricWSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "factorysim",
		Name:      "ws_clients",
		Help:      "Number of websocket clients currently subscribed to snapshot updates.",
	})
	metricWIP = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "factorysim",
		Name:      "wip",
		Help:      "Work-in-progress reported by the most recent decision-point snapshot.",
	})
	metricDownStations = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "factorysim",
		Name:      "down_stations",
		Help:      "Number of stations currently down, from the most recent decision-point snapshot.",
	})
	metricWorkersAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "factorysim",
		Name:      "workers_available",
		Help:      "Idle repair workers, from the most recent decision-point snapshot.",
	})
)

func recordDecision(snap sim.Snapshot) {
	metricDecisionsServed.Inc()
	metricWIP.Set(float64(snap.WIP))
	metricDownStations.Set(float64(snap.Down))
	metricWorkersAvailable.Set(float64(snap.WorkersAvailable))
}

func recordReset() {
	metricResets.Inc()
}
