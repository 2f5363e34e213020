package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var eventsAccepted *prometheus.CounterVec

// InitMetrics registers the ingestion counters. Call once at startup.
func InitMetrics() {
	eventsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitepulse",
			Name:      "events_accepted_total",
			Help:      "Total number of accepted analytics events.",
		},
		[]string{"event"},
	)
	prometheus.MustRegister(eventsAccepted)
}

func recordEventAccepted(eventName string) {
	if eventsAccepted != nil {
		eventsAccepted.WithLabelValues(eventName).Inc()
	}
}

// Metrics exposes the prometheus registry.
func Metrics() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
}
