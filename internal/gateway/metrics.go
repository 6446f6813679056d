// Copyright 2026 The Gatehouse Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package gateway

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatehouse_decisions_total",
			Help: "Total number of gateway decisions by action and rule.",
		},
		[]string{"action", "rule"},
	)

	validateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "gatehouse_validate_duration_seconds",
			Help: "Command validation duration in seconds.",
			Buckets: []float64{
				0.000001, 0.000005, 0.00001, 0.00005,
				0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1,
			},
		},
	)

	executeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gatehouse_execute_duration_seconds",
			Help:    "Approved command execution duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 12),
		},
	)

	uptimeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gatehouse_uptime_seconds",
			Help: "Seconds since the gateway daemon started.",
		},
	)

	metricsRegistry = prometheus.NewRegistry()
)

func init() {
	metricsRegistry.MustRegister(
		decisionsTotal,
		validateDuration,
		executeDuration,
		uptimeSeconds,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}

// recordDecision records one gateway decision.
func recordDecision(action, rule string, validate time.Duration) {
	if rule == "" {
		rule = "none"
	}
	decisionsTotal.With(prometheus.Labels{"action": action, "rule": rule}).Inc()
	validateDuration.Observe(validate.Seconds())
}

// recordExecution records the duration of an approved command.
func recordExecution(d time.Duration) {
	executeDuration.Observe(d.Seconds())
}

// SetUptime sets the uptime gauge in seconds.
func SetUptime(d time.Duration) {
	uptimeSeconds.Set(d.Seconds())
}

// MetricsHandler returns an HTTP handler for the /metrics endpoint.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})
}
