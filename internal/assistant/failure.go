package assistant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

type FailureKind string

const (
	FailureConnection FailureKind = "connection"
	FailureTimeout    FailureKind = "timeout"
	FailureStatus     FailureKind = "status"
	FailureMalformed  FailureKind = "malformed"
	FailureUnexpected FailureKind = "unexpected"
)

const (
	FallbackConnection = "I'm sorry, the AI assistant is temporarily unavailable. Please consult a healthcare professional for urgent concerns or try again later."
	FallbackTimeout    = "I'm sorry, the AI assistant took too long to respond. Please consult a healthcare professional for urgent concerns or try again later."
	FallbackUnexpected = "I'm sorry, something went wrong while contacting the AI assistant. Please consult a healthcare professional for urgent concerns or try again later."
	FallbackEmpty      = "Sorry, I could not process your request."

	fallbackStatusFormat = "Chatbot error: HTTP %d. Please try again."
)

// Failure describes why a generation call did not produce text. It is logged
// and turned into fallback text; callers never see it.
type Failure struct {
	Kind   FailureKind
	URL    string
	Status int
	Body   string
	Err    error
}

func (f *Failure) Error() string {
	switch f.Kind {
	case FailureStatus:
		return fmt.Sprintf("llm %s: status %d from %s", f.Kind, f.Status, f.URL)
	default:
		if f.Err == nil {
			return fmt.Sprintf("llm %s: %s", f.Kind, f.URL)
		}
		return fmt.Sprintf("llm %s: %s: %v", f.Kind, f.URL, f.Err)
	}
}

func (f *Failure) Unwrap() error { return f.Err }

// FallbackText is the user-safe reply for this failure. Only the status kind
// exposes a detail, the numeric HTTP status.
func (f *Failure) FallbackText() string {
	switch f.Kind {
	case FailureConnection:
		return FallbackConnection
	case FailureTimeout:
		return FallbackTimeout
	case FailureStatus:
		return fmt.Sprintf(fallbackStatusFormat, f.Status)
	default:
		return FallbackUnexpected
	}
}

// classifyTransportError maps an error from http.Client.Do to a failure kind.
func classifyTransportError(url string, err error) *Failure {
	kind := FailureUnexpected
	switch {
	case isTimeout(err):
		kind = FailureTimeout
	case isConnectionError(err):
		kind = FailureConnection
	}
	return &Failure{Kind: kind, URL: url, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
