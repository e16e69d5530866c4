package drawchat

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Status label values.
const (
	LabelStatus        = "status"
	LabelStatusFail    = "fail"
	LabelStatusSuccess = "success"
)

var (
	// tokenAttempts counts room token candidates tried
	tokenAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "drawchat_token_derivation_attempts_total",
			Help: "number of room token candidates checked against the validators",
		})

	// challengeAttempts counts proof-of-work nonces tried
	challengeAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "drawchat_challenge_attempts_total",
			Help: "number of nonces hashed while solving session challenges",
		})

	sessionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drawchat_sessions_total",
			Help: "number of finished sessions by outcome",
		}, []string{LabelStatus})
)

var registerLock = sync.Once{}

// RegisterMetrics registers the package collectors with the default
// prometheus registry. Safe to call more than once.
func RegisterMetrics() {
	registerLock.Do(func() {
		prometheus.MustRegister(tokenAttempts)
		prometheus.MustRegister(challengeAttempts)
		prometheus.MustRegister(sessionCounter)
	})
}
