// Package counters exposes the pipeline's Prometheus metrics.
package counters

import (
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// UnknownTypeCount counts transactions whose txn_data was absent. These
	// are skipped, not fatal.
	UnknownTypeCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "processor_unknown_type_count",
		Help: "Number of transactions with missing txn_data, skipped by the processor.",
	}, []string{"processor"})

	// LastSuccessVersion tracks the latest committed end version per processor.
	LastSuccessVersion = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "processor_last_success_version",
		Help: "Highest transaction version committed by the processor.",
	}, []string{"processor"})

	// BatchProcessingSecs observes per-batch transform durations.
	BatchProcessingSecs = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "processor_batch_processing_seconds",
		Help:    "Time spent decoding and transforming one batch.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"processor"})

	// BatchDBSecs observes per-batch publish+write durations.
	BatchDBSecs = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "processor_batch_db_seconds",
		Help:    "Time spent publishing and writing one batch.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"processor"})
)

// Serve starts the /metrics listener. Port 0 disables it.
func Serve(port int) {
	if port == 0 {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		addr := fmt.Sprintf(":%d", port)
		log.Printf("[Metrics] Listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("[Metrics] Listener stopped: %v", err)
		}
	}()
}
