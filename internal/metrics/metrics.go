package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const pushJob = "jmaweather"

var (
	JMAFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jmaweather_jma_fetch_total",
			Help: "Total JMA HTTP fetches",
		},
		[]string{"endpoint", "status"},
	)

	JMAFetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jmaweather_jma_fetch_latency_seconds",
			Help:    "JMA fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	FetchCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jmaweather_fetch_cache_total",
			Help: "Run-scoped fetch cache lookups",
		},
		[]string{"result"},
	)

	DistributionRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jmaweather_distribution_retries_total",
			Help: "Distribution map fetches retried one hour earlier",
		},
	)

	RunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jmaweather_run_duration_seconds",
			Help: "Duration of the last fetch-compute-publish run",
		},
	)

	LastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jmaweather_last_success_timestamp_seconds",
			Help: "Unix time of the last successful publish",
		},
	)

	CurrentRainLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jmaweather_nowcast_rain_level",
			Help: "Nowcast rain level (0-8) at the observation point",
		},
	)
)

// Push sends the default registry to a Prometheus Pushgateway. Batch runs
// exit before anything could scrape them.
func Push(ctx context.Context, url string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, pushJob).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
