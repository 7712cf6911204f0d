package telemetry

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// WrapHTTPTransport wraps an existing transport with OTEL instrumentation.
// Proxy and timeout settings on the wrapped transport are preserved.
func WrapHTTPTransport(transport http.RoundTripper) http.RoundTripper {
	if !IsEnabled() {
		return transport
	}
	return otelhttp.NewTransport(transport)
}
