package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	SharesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bytegift_shares_created_total",
			Help: "Total number of share snapshots created",
		},
	)
	SharesExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bytegift_shares_expired_total",
			Help: "Total number of share snapshots removed after expiry",
		},
	)
	AssetUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytegift_asset_uploads_total",
			Help: "Total number of asset uploads by kind and outcome",
		},
		[]string{"kind", "status"},
	)
	LiveBoards = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bytegift_live_boards",
			Help: "Number of live boards currently held in memory",
		},
	)
)

var registerOnce sync.Once

// Register adds the domain metrics to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(SharesCreated, SharesExpired, AssetUploads, LiveBoards)
	})
}
