package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionIssuance counts create_session outcomes
	SessionIssuance = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wholesale_session_issuance_total",
		Help: "Wholesale session creation attempts by outcome",
	}, []string{"outcome"})

	// SessionValidation counts validate_session results
	SessionValidation = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wholesale_session_validation_total",
		Help: "Wholesale session validations by result",
	}, []string{"result"})

	// DeviceClaims counts exclusive credential claims, including lost races
	DeviceClaims = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wholesale_device_claims_total",
		Help: "Compare-and-set device claims on exclusive credentials",
	}, []string{"result"})

	// CodeSends counts one-time-code send outcomes
	CodeSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otc_send_total",
		Help: "One-time-code send requests by outcome",
	}, []string{"outcome"})

	// CodeVerifications counts one-time-code verification outcomes
	CodeVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otc_verify_total",
		Help: "One-time-code verifications by outcome",
	}, []string{"outcome"})

	// SweepDeleted counts rows removed by the expiry sweep
	SweepDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expiry_sweep_deleted_total",
		Help: "Rows deleted by the expiry sweep",
	}, []string{"kind"})

	// RequestDuration observes HTTP handler latency
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
