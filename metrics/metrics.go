// Package metrics exposes Prometheus counters for the checkout and payment
// flows and mirrors the business counters to CloudWatch when configured.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	awspkg "github.com/yashrajoria/storefront-service/pkg/aws"
)

const namespace = "storefront"

// Verification outcomes.
const (
	OutcomeConfirmed        = "confirmed"
	OutcomePaymentFailed    = "payment_failed"
	OutcomeAlreadyProcessed = "already_processed"
	OutcomeMalformed        = "malformed"
	OutcomeSignatureInvalid = "signature_invalid"
	OutcomeNotFound         = "not_found"
	OutcomeRejected         = "invalid_transition"
	OutcomeError            = "error"
)

type Metrics struct {
	CheckoutSessions *prometheus.CounterVec
	Verifications    *prometheus.CounterVec
	Transitions      *prometheus.CounterVec
	Callbacks        *prometheus.CounterVec
	Requests         *prometheus.CounterVec
	LatencyMS        *prometheus.HistogramVec

	gatherer prometheus.Gatherer
	cloud    *awspkg.MetricsClient
	service  string
}

// New registers the collectors on reg. Passing a fresh prometheus.Registry
// keeps tests isolated from the process-wide default.
func New(reg *prometheus.Registry, service string, cloud *awspkg.MetricsClient) *Metrics {
	m := &Metrics{
		CheckoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_total",
			Help:      "Checkout sessions by outcome.",
		}, []string{"outcome"}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_verifications_total",
			Help:      "Payment callback verifications by outcome.",
		}, []string{"outcome"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order state transitions actually applied.",
		}, []string{"event"}),
		Callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_callbacks_consumed_total",
			Help:      "Queued payment callbacks by result.",
		}, []string{"result"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		gatherer: reg,
		cloud:    cloud,
		service:  service,
	}
	reg.MustRegister(m.CheckoutSessions, m.Verifications, m.Transitions, m.Callbacks, m.Requests, m.LatencyMS)
	return m
}

func (m *Metrics) CheckoutSession(outcome string) {
	if m == nil {
		return
	}
	m.CheckoutSessions.WithLabelValues(outcome).Inc()
	if outcome == "opened" {
		m.pushCount(awspkg.MetricCheckoutSessions)
	}
}

func (m *Metrics) Verification(outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
	switch outcome {
	case OutcomeSignatureInvalid, OutcomeMalformed:
		m.pushCount(awspkg.MetricPaymentRejected)
	}
}

func (m *Metrics) Transition(event string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(event).Inc()
	switch event {
	case "confirm_payment":
		m.pushCount(awspkg.MetricPaymentConfirmed)
	case "cancel", "fail_payment":
		m.pushCount(awspkg.MetricOrdersCanceled)
	}
}

func (m *Metrics) Callback(result string) {
	if m == nil {
		return
	}
	m.Callbacks.WithLabelValues(result).Inc()
	m.pushCount(awspkg.MetricCallbacksHandled)
}

func (m *Metrics) pushCount(name string) {
	if !m.cloud.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.cloud.Put(ctx, map[string]string{"Service": m.service}, awspkg.Count(name))
	}()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	}
}
