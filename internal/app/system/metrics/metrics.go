// Package metrics registers the Prometheus instruments for the detection
// pipeline and exposes the /metrics handler.
//
// The record-failure counter is the operator-visible signal required when a
// detected login could not be persisted: the detection path drops the event
// after its bounded retry, so the counter is the only durable trace.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LoginsDetected counts recorded login events by detection method.
	LoginsDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratawatch_logins_detected_total",
			Help: "Login events detected and recorded, by detection method.",
		},
		[]string{"method"},
	)

	// RecordFailures counts detected logins that could not be persisted
	// after the bounded retry.
	RecordFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stratawatch_record_failures_total",
		Help: "Detected login events dropped because the store write failed.",
	})

	// SessionsOpen tracks in-flight correlation sessions.
	SessionsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stratawatch_sessions_open",
		Help: "Correlation sessions currently open (CONNECT seen, callback pending).",
	})

	// SessionsExpired counts sessions swept without a matching callback.
	SessionsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stratawatch_sessions_expired_total",
		Help: "Correlation sessions expired without a matching callback.",
	})

	// TunnelsActive tracks open CONNECT tunnels through the proxy.
	TunnelsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stratawatch_proxy_tunnels_active",
		Help: "CONNECT tunnels currently being relayed.",
	})

	// TunnelsTotal counts CONNECT tunnels served since start.
	TunnelsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stratawatch_proxy_tunnels_total",
		Help: "CONNECT tunnels served since process start.",
	})
)

// Init registers all instruments with the default registry.
// Call once at startup.
func Init() {
	prometheus.MustRegister(
		LoginsDetected,
		RecordFailures,
		SessionsOpen,
		SessionsExpired,
		TunnelsActive,
		TunnelsTotal,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
