package yggAuth

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrEngineNotReady is returned when an Engine method is used on a nil or closed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrRemoteClientRequired is returned by Build when no RemoteClient was supplied.
	ErrRemoteClientRequired = errors.New("remote client required")
	// ErrBuilderUsed is returned when Build is called twice on one Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrInvalidProxyAddress is returned by Config.Validate for a malformed proxy base address.
	ErrInvalidProxyAddress = errors.New("invalid proxy auth server address")
	// ErrInvalidRequestTimeout is returned by Config.Validate for a negative request timeout.
	ErrInvalidRequestTimeout = errors.New("request timeout must be >= 0")
	// ErrInvalidAuditBuffer is returned by Config.Validate for a negative audit buffer.
	ErrInvalidAuditBuffer = errors.New("audit buffer size must be >= 0")
	// ErrNilResponse is carried as the cause of an ERR_INSIDE result when the
	// remote client returned neither a response nor an error.
	ErrNilResponse = errors.New("remote client returned nil response")
	// ErrEmptyAccessToken is carried as the cause of an ERR_INSIDE result when
	// a refresh reported success without issuing a token.
	ErrEmptyAccessToken = errors.New("refresh succeeded without an access token")
)

// Error is the diagnostic payload carried by a failed [AuthenticateResult].
// Kind holds the remote error class (e.g. "ForbiddenOperationException")
// when the server sent one.
type Error struct {
	Message    string `json:"errorMessage,omitempty"`
	Kind       string `json:"error,omitempty"`
	StatusCode int    `json:"status,omitempty"`
	Cause      error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "":
		return e.Message
	case e.Kind != "":
		return e.Kind
	case e.Cause != nil:
		return e.Cause.Error()
	default:
		return "authentication error"
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTimeout reports whether err is a cancellation or timeout: a cancelled or
// expired context, or a net.Error whose Timeout method reports true.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
