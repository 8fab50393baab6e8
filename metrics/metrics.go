package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/model"
)

// Follow Prometheus naming practices
// https://prometheus.io/docs/practices/naming/
var (
	distributionLabels = []string{"distribution"}
)

var (
	MetricLaneFillDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "counter_rand_lane_fill_duration_seconds",
			Help:    "Time to generate one lane's batch of values (seconds).",
			Buckets: []float64{1e-6, 1e-5, 1e-4, 1e-3, 0.01, 0.1, 0.25, 1, 5},
		},
		distributionLabels,
	)

	MetricValuesGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_rand_values_generated_total",
			Help: "Total pseudorandom values written to output buffers.",
		},
		distributionLabels,
	)

	MetricConfiguredLanes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "counter_rand_configured_lanes",
			Help: "Number of logical lanes in the active configuration.",
		},
	)
)

type MetricsServer struct {
	*http.Server

	laneFillHistogram *prometheus.HistogramVec
	valuesCounter     *prometheus.CounterVec
	lanesGauge        prometheus.Gauge
}

const (
	// MetricsPath is the endpoint to collect generation metrics
	MetricsPath = "/metrics"
)

type ServerConfig struct {
	Addr string
}

// NewMetricsServer returns a new prometheus server which collects
// generation metrics
func NewMetricsServer(cfg ServerConfig) *MetricsServer {
	mux := http.NewServeMux()

	reg := prometheus.NewRegistry()

	reg.MustRegister(MetricLaneFillDuration)
	reg.MustRegister(MetricValuesGenerated)
	reg.MustRegister(MetricConfiguredLanes)

	mux.Handle(MetricsPath, promhttp.HandlerFor(prometheus.Gatherers{
		reg,
	}, promhttp.HandlerOpts{}))
	return &MetricsServer{
		Server: &http.Server{
			Addr:    cfg.Addr,
			Handler: mux,
		},
		laneFillHistogram: MetricLaneFillDuration,
		valuesCounter:     MetricValuesGenerated,
		lanesGauge:        MetricConfiguredLanes,
	}
}

// ObserveLaneFill adds an observed measurement of one lane fill
func (m *MetricsServer) ObserveLaneFill(duration time.Duration, distribution string) {
	m.laneFillHistogram.WithLabelValues(distribution).Observe(duration.Seconds())
}

// AddValues counts values written to the output buffer
func (m *MetricsServer) AddValues(n int, distribution string) {
	m.valuesCounter.WithLabelValues(distribution).Add(float64(n))
}

// SetConfiguredLanes records the lane count of the active run
func (m *MetricsServer) SetConfiguredLanes(lanes uint64) {
	m.lanesGauge.Set(float64(lanes))
}

// GenReport queries a Prometheus server scraping this process and
// prints lane-fill latency percentiles over the run window.
func GenReport(addr string, duration time.Duration) error {
	client, err := api.NewClient(api.Config{
		Address: addr,
	})
	if err != nil {
		return fmt.Errorf("error creating report client: %w", err)
	}

	v1api := v1.NewAPI(client)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	interval := duration.Round(time.Second).String()
	getPercentile := func(percentile string) error {
		queryFillPercentile := "histogram_quantile(%s, sum(rate(counter_rand_lane_fill_duration_seconds_bucket[%s])) by (le))"

		query := fmt.Sprintf(queryFillPercentile, percentile, interval)
		result, warnings, err := v1api.Query(ctx, query, time.Now())
		if err != nil {
			return fmt.Errorf("error querying Prometheus: %w", err)
		}
		if len(warnings) > 0 {
			fmt.Printf("Warnings: %v\n", warnings)
		}

		vec, ok := result.(model.Vector)
		if !ok {
			return fmt.Errorf("unsupported result format: %s", result.Type().String())
		}
		if vec.Len() == 0 {
			fmt.Println("Not enough samples")
			return nil
		}
		fmt.Printf("%sth percentile lane fill latency (second): %0.6f\n", percentile, vec[0].Value)
		return nil
	}

	if err := getPercentile("0.5"); err != nil {
		return err
	}
	if err := getPercentile("0.9"); err != nil {
		return err
	}

	return nil
}
