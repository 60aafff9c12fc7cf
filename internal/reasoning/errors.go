package reasoning

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var ErrEmptyCompletion = errors.New("reasoning service returned no text")

type FailureClass string

const (
	FailureTimeout   FailureClass = "timeout"
	FailureRateLimit FailureClass = "rate_limit"
	FailureServer    FailureClass = "server"
	FailureClient    FailureClass = "client"
)

// TransportError tags a provider failure with its class so callers can log
// it without parsing message text.
type TransportError struct {
	Provider string
	Class    FailureClass
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s failure: %v", e.Provider, e.Class, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) FailureKind() string { return string(e.Class) }

func wrapTransportError(provider string, err error) error {
	return &TransportError{Provider: provider, Class: classifyTransportError(err), Err: err}
}

func classifyTransportError(err error) FailureClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FailureTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"):
		return FailureRateLimit
	case strings.Contains(msg, "status code: 5") || strings.Contains(msg, "server error"):
		return FailureServer
	case strings.Contains(msg, "status code: 4") || strings.Contains(msg, " 401 ") || strings.Contains(msg, " 403 "):
		return FailureClient
	default:
		return FailureServer
	}
}
