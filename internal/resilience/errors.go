package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// Transient marks an error as safe to retry, carrying the HTTP status when
// one was observed.
type Transient struct {
	Err    error
	Status int
}

func (e *Transient) Error() string { return e.Err.Error() }

func (e *Transient) Unwrap() error { return e.Err }

// MarkTransient wraps err as retryable. Status may be 0 for non-HTTP failures.
func MarkTransient(err error, status int) *Transient {
	return &Transient{Err: err, Status: status}
}

// connectionFailures are message fragments from wrapped transport errors
// that the net package does not surface as typed errors.
var connectionFailures = []string{
	"connection reset by peer",
	"broken pipe",
	"i/o timeout",
	"tls handshake timeout",
	"server closed idle connection",
}

// IsTransient reports whether err is worth retrying: an explicit Transient
// mark anywhere in the chain, a network timeout, or a dropped connection.
// The federal map servers shed load by closing connections mid-response, so
// those surface here rather than as typed errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *Transient
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, frag := range connectionFailures {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

// RetryableStatus reports whether an HTTP status is a transient server-side
// condition. 429 covers the ATTOM and BLS daily-quota throttles; 503 is how
// the census and FEMA endpoints shed load.
func RetryableStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}
