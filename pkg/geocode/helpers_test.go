package geocode

import (
	"net/http"
	"net/url"

	"golang.org/x/time/rate"
)

// unthrottled returns a limiter that never blocks.
func unthrottled() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// redirectClient returns an HTTP client that sends every request to the test
// server, keeping the original path and query. The provider URLs are package
// constants, so tests reroute at the transport rather than injecting a base URL.
func redirectClient(testServerURL string) *http.Client {
	target, err := url.Parse(testServerURL)
	if err != nil {
		panic(err)
	}
	return &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			clone := req.Clone(req.Context())
			clone.URL.Scheme = target.Scheme
			clone.URL.Host = target.Host
			clone.Host = target.Host
			return http.DefaultTransport.RoundTrip(clone)
		}),
	}
}
