// Package metrics defines and registers all custom Prometheus metrics for the
// classroom API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on import via
// promauto; the /metrics endpoint exposes them alongside the HTTP metrics
// collected by echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "classroom"

// ── Authentication metrics ────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "user_not_found", "forbidden" or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, labelled by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts accounts created.
// Label:
//   - role: the role assigned to the new account
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of user accounts registered, by role.",
	},
	[]string{"role"},
)

// TokenRefreshTotal counts refresh-token exchanges.
// Label:
//   - result: "rotated", "revoked", "expired", "not_found" or "error"
var TokenRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refresh_total",
		Help:      "Total number of refresh token exchanges, labelled by result.",
	},
	[]string{"result"},
)

// TokenDecodeFailuresTotal counts access tokens rejected by the Auth
// middleware or the current-user endpoint.
// Label:
//   - reason: "missing", "expired" or "invalid"
var TokenDecodeFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_decode_failures_total",
		Help:      "Total number of rejected access tokens, labelled by reason.",
	},
	[]string{"reason"},
)
