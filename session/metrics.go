package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	verifySuccessTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessionkit_verify_success_total",
			Help: "Total number of successful session verifications",
		},
	)
	verifyFailureTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessionkit_verify_failure_total",
			Help: "Total number of session verifications that ended in teardown",
		},
	)
	verifyRetryTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessionkit_verify_retry_total",
			Help: "Total number of bounded refresh-and-reverify retries",
		},
	)

	refreshSuccessTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessionkit_refresh_success_total",
			Help: "Total number of successful access token refreshes",
		},
	)
	refreshFailureTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessionkit_refresh_failure_total",
			Help: "Total number of rejected or failed access token refreshes",
		},
	)

	logoutTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessionkit_logout_total",
			Help: "Total number of logouts, user initiated or cascaded",
		},
	)
	teardownTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessionkit_teardown_total",
			Help: "Total number of teardown passes (idempotent, so this can exceed logouts)",
		},
	)
)
