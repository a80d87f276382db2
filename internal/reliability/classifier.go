package reliability

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Reason names why a provider attempt produced no usable reply.
type Reason string

const (
	ReasonTimeout   Reason = "timeout"
	ReasonStatus    Reason = "status"
	ReasonMalformed Reason = "malformed"
	ReasonEmpty     Reason = "empty"
	ReasonTransport Reason = "transport"
	ReasonCanceled  Reason = "canceled"
)

// ErrEmptyReply is returned by providers that answered successfully with no text.
var ErrEmptyReply = errors.New("provider returned empty reply")

// ErrMalformed marks a response body that could not be decoded.
var ErrMalformed = errors.New("malformed provider response")

// StatusError is a non-2xx provider response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider http status %d", e.Code)
	}
	return fmt.Sprintf("provider http status %d: %s", e.Code, e.Body)
}

// Miss is one failed provider attempt. It is recoverable: the resolver moves on to
// the next provider.
type Miss struct {
	Provider string
	Reason   Reason
	Err      error
}

func (m *Miss) Error() string {
	return fmt.Sprintf("provider %s miss (%s): %v", m.Provider, m.Reason, m.Err)
}

func (m *Miss) Unwrap() error { return m.Err }

// Retryable reports whether the same provider could plausibly succeed later.
func (m *Miss) Retryable() bool {
	switch m.Reason {
	case ReasonTimeout, ReasonTransport:
		return true
	case ReasonStatus:
		var se *StatusError
		return errors.As(m.Err, &se) && IsRetryableHTTPStatus(se.Code)
	default:
		return false
	}
}

// NewMiss classifies err into a Miss for the named provider.
func NewMiss(provider string, err error) *Miss {
	var m *Miss
	if errors.As(err, &m) {
		return m
	}
	return &Miss{Provider: provider, Reason: Classify(err), Err: err}
}

// Classify maps a provider error to a miss reason.
func Classify(err error) Reason {
	var se *StatusError
	var netErr net.Error
	switch {
	case errors.Is(err, ErrEmptyReply):
		return ReasonEmpty
	case errors.Is(err, ErrMalformed):
		return ReasonMalformed
	case errors.As(err, &se):
		return ReasonStatus
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.As(err, &netErr) && netErr.Timeout():
		return ReasonTimeout
	default:
		return ReasonTransport
	}
}

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
