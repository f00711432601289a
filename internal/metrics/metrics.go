// Package metrics exposes Prometheus counters for the dispatch pipeline.
package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkpeek_updates_total",
			Help: "Updates received from the long-poll loop, by payload kind",
		},
		[]string{"kind"},
	)

	InspectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkpeek_url_inspections_total",
			Help: "URL inspections performed, by outcome",
		},
		[]string{"outcome"},
	)

	PlatformRelaysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkpeek_platform_relays_total",
			Help: "Structured platform relays attempted, by outcome",
		},
		[]string{"outcome"},
	)

	RejectedChatsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "linkpeek_rejected_chats_total",
			Help: "Messages rejected by the access policy",
		},
	)
)

// Register installs all collectors into the default registry. Call once at
// startup.
func Register() {
	prometheus.MustRegister(
		UpdatesTotal,
		InspectionsTotal,
		PlatformRelaysTotal,
		RejectedChatsTotal,
	)
}

// Serve blocks serving the /metrics endpoint on addr.
func Serve(addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics listener started", "addr", addr)
	return http.ListenAndServe(addr, mux)
}
