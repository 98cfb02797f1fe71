package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	flushTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_flush_total",
			Help: "Total progress flushes by result",
		},
		[]string{"result"},
	)
	flushedAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_flushed_amount_total",
			Help: "Total absolute amount flushed per field",
		},
		[]string{"field"},
	)
	pendingDeltas = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "progress_pending_deltas",
			Help: "Optimistic deltas not yet confirmed or discarded",
		},
	)
)

func init() {
	prometheus.MustRegister(flushTotal)
	prometheus.MustRegister(flushedAmount)
	prometheus.MustRegister(pendingDeltas)
}
