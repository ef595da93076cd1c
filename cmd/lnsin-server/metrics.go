package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Labels: kind (error kind, "ok" on success)
	computeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lnsin",
		Name:      "compute_requests_total",
		Help:      "Evaluation requests by outcome",
	}, []string{"kind"})

	computeTerms = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lnsin",
		Name:      "compute_terms",
		Help:      "Number of series terms of successful evaluations",
		Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 89},
	})

	computeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lnsin",
		Name:      "compute_duration_seconds",
		Help:      "Evaluation latency in seconds",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
	})

	bernoulliTableSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lnsin",
		Name:      "bernoulli_table_size",
		Help:      "Number of Bernoulli values in the shared table",
	})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lnsin",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter",
	})
)
