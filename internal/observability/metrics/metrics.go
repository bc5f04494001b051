package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lakeside"

// ChatMetrics exposes counters/histograms for the chat endpoint.
type ChatMetrics struct {
	repliesTotal   *prometheus.CounterVec
	rejectedTotal  *prometheus.CounterVec
	gatewayTotal   *prometheus.CounterVec
	gatewayLatency *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "replies_total",
			Help:      "Chat replies by resolution stage and source",
		}, []string{"stage", "source"}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "rejected_total",
			Help:      "Chat requests rejected before resolution",
		}, []string{"reason"}),
		gatewayTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "gateway_total",
			Help:      "Chat gateway attempts by outcome",
		}, []string{"outcome"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "gateway_latency_seconds",
			Help:      "Latency of chat gateway calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 6, 8, 10},
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.repliesTotal, m.rejectedTotal, m.gatewayTotal, m.gatewayLatency)
	return m
}

func (m *ChatMetrics) ObserveReply(stage, source string) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(stage, source).Inc()
}

func (m *ChatMetrics) ObserveRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

// ObserveGateway counts an attempt. Latency is only recorded for calls that
// reached the endpoint.
func (m *ChatMetrics) ObserveGateway(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.gatewayTotal.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		m.gatewayLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
	}
}

// ContentMetrics counts content API writes.
type ContentMetrics struct {
	appointmentsTotal *prometheus.CounterVec
}

func NewContentMetrics(reg prometheus.Registerer) *ContentMetrics {
	m := &ContentMetrics{
		appointmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "content",
			Name:      "appointment_requests_total",
			Help:      "Appointment requests by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.appointmentsTotal)
	return m
}

func (m *ContentMetrics) ObserveAppointment(outcome string) {
	if m == nil {
		return
	}
	m.appointmentsTotal.WithLabelValues(outcome).Inc()
}
