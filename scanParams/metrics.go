package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hillipop_evaluations_total",
		Help: "Likelihood evaluations by status",
	}, []string{"status"})

	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hillipop_evaluation_duration_seconds",
		Help:    "Duration of one likelihood evaluation",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~0.8s
	})

	storedBatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hillipop_stored_batches_total",
		Help: "Batches of evaluations written to the results files",
	})
)

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if VerbosityLevel > 0 {
			logger.Info(fmt.Sprintf("Serving metrics on %s/metrics", addr), "metrics")
		}
		err := http.ListenAndServe(addr, mux)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(fmt.Sprintf("metrics server: %v", err))
		}
	}()
}
