package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InstrumentTransport wraps an outbound transport with request metrics.
// A nil transport means http.DefaultTransport.
func InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if !enabled {
		return next
	}

	return promhttp.InstrumentRoundTripperCounter(httpClientRequestsTotal,
		promhttp.InstrumentRoundTripperDuration(httpClientDuration, next),
	)
}
