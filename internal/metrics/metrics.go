// Package metrics holds the Prometheus instruments of the streaming loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counters
var (
	BlocksWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sinestream_blocks_written_total",
		Help: "Sample blocks accepted by the sink",
	})
	FramesWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sinestream_frames_written_total",
		Help: "Frames accepted by the sink",
	})
	WriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sinestream_sink_write_errors_total",
		Help: "Sink writes that failed",
	})
)

// Gauges
var (
	QueuedBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sinestream_queue_bytes",
		Help: "Encoded bytes waiting between generator and sink writer",
	})
)

// Histograms
var (
	WriteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sinestream_sink_write_duration_ms",
		Help:    "Time a sink write blocked, in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 50, 100, 250},
	})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
