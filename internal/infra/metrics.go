package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Переходы брифа и задач продакшна: from, to, outcome (ok, incomplete, policy_reject, illegal, conflict)
	Transitions *prometheus.CounterVec

	// Policy Engine: решение (allowed, auto_reject) и нужна ли подпись владельца
	PolicyDecisions *prometheus.CounterVec

	// AI Auditor: итоговый статус аудита
	AuditOutcomes *prometheus.CounterVec

	// Доставка уведомлений: delivered, failed
	Notifications *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker доставки (0 - ок, 1 - выбило)
	CircuitBreakerState *prometheus.GaugeVec

	// Latency HTTP API
	RequestDuration *prometheus.HistogramVec

	// Trail: заполненность буфера (backpressure)
	TrailBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		Transitions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "briefgov_transitions_total",
			Help: "Brief and production status transition attempts.",
		}, []string{"from", "to", "outcome"}),

		PolicyDecisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "briefgov_policy_decisions_total",
			Help: "Policy Engine evaluations by decision.",
		}, []string{"decision", "owner_approval"}),

		AuditOutcomes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "briefgov_audit_outcomes_total",
			Help: "Audits performed by overall status.",
		}, []string{"status"}),

		Notifications: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "briefgov_notifications_total",
			Help: "Notification deliveries by result.",
		}, []string{"result"}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "briefgov_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=open).",
		}, []string{"name"}),

		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "briefgov_request_duration_seconds",
			Help:    "Histogram of API request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"route", "status"}),

		TrailBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "briefgov_trail_buffer_utilization",
			Help: "Current number of events in the transition journal buffer.",
		}),
	}
}
