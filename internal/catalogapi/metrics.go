package catalogapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricsNamespace = "storefront"
	unmatchedRoute   = "unmatched"
)

type metrics struct {
	registry     *prometheus.Registry
	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	ordersPlaced *prometheus.CounterVec
}

func newMetrics() *metrics {
	httpInFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests handled.",
	}, []string{"method", "route", "status"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"method", "route"})
	ordersPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "orders",
		Name:      "placed_total",
		Help:      "Orders placed by payment method.",
	}, []string{"payment_method"})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ordersPlaced,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &metrics{
		registry:     registry,
		httpInFlight: httpInFlight,
		httpRequests: httpRequests,
		httpDuration: httpDuration,
		ordersPlaced: ordersPlaced,
	}
}

func (collected *metrics) handler() http.Handler {
	return promhttp.HandlerFor(collected.registry, promhttp.HandlerOpts{})
}

func (collected *metrics) middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		route := ctx.FullPath()
		if route == metricsPath {
			ctx.Next()
			return
		}
		if route == "" {
			route = unmatchedRoute
		}
		start := time.Now()
		collected.httpInFlight.Inc()
		ctx.Next()
		collected.httpInFlight.Dec()
		method := ctx.Request.Method
		collected.httpRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		collected.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func (collected *metrics) orderPlaced(paymentMethod string) {
	collected.ordersPlaced.WithLabelValues(paymentMethod).Inc()
}
