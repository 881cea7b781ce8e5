package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type appMetrics struct {
	txsTotal     *prometheus.CounterVec
	checkTotal   *prometheus.CounterVec
	blockHeight  prometheus.Gauge
	blockTxs     prometheus.Histogram
	commitsTotal prometheus.Counter
}

func (m *appMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.txsTotal = promautoFactory.NewCounterVec(prometheus.CounterOpts{
		Name: "surety_app_txs_total",
		Help: "finalized transactions by type and result code",
	}, []string{"type", "code"})
	m.checkTotal = promautoFactory.NewCounterVec(prometheus.CounterOpts{
		Name: "surety_app_check_txs_total",
		Help: "mempool checks by type and result code",
	}, []string{"type", "code"})
	m.blockHeight = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "surety_app_block_height",
		Help: "height of the last finalized block",
	})
	m.blockTxs = promautoFactory.NewHistogram(prometheus.HistogramOpts{
		Name:    "surety_app_block_txs",
		Help:    "transactions per finalized block",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
	m.commitsTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "surety_app_commits_total",
		Help: "committed state versions",
	})
}
