package metrics

import "time"

// Outcome labels for VerificationSubmit
const (
	OutcomeVerified    = "verified"
	OutcomeSubmitted   = "submitted"
	OutcomeRejected    = "rejected"
	OutcomeTransport   = "transport_error"
	OutcomeUnsupported = "unsupported_network"
)

// VerificationSubmit records a verification submission.
func VerificationSubmit(network, outcome string, duration time.Duration) {
	if !enabled {
		return
	}
	verificationTotal.WithLabelValues(network, outcome).Inc()
	verificationDuration.WithLabelValues(network).Observe(duration.Seconds())
	verificationLastResult.WithLabelValues(network, outcome).SetToCurrentTime()
}
