package flows

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// CallResult is the protocol-neutral view of one remote call.
// Cause is the underlying transport cause attached to a failed call, if any.
type CallResult struct {
	Success    bool
	StatusCode int
	Cause      error
}

// Call performs one remote operation. A non-nil error is a local fault.
type Call func(ctx context.Context) (CallResult, error)

// guard runs call and converts a panic into an error carrying the panic
// site, so no fault escapes a flow.
func guard(ctx context.Context, op string, call Call) (res CallResult, err error) {
	if call == nil {
		return CallResult{}, errors.Newf("%s: no remote call configured", op)
	}

	defer func() {
		if r := recover(); r != nil {
			res = CallResult{}
			err = recoveredError(r)
		}
	}()

	return call(ctx)
}

func recoveredError(r any) error {
	if e, ok := r.(error); ok {
		return errors.WithStack(e)
	}
	return errors.WithStack(fmt.Errorf("%v", r))
}

func isTimeout(cause error, fn func(error) bool) bool {
	if cause == nil {
		return false
	}
	if fn != nil {
		return fn(cause)
	}
	return errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, context.Canceled)
}

// statusOutcome maps the fixed status precedence of a rejected login.
func statusOutcome(code int) (LoginOutcome, bool) {
	switch code {
	case http.StatusMethodNotAllowed:
		return LoginMethodNotAllowed, true
	case http.StatusNotFound:
		return LoginNotFound, true
	case http.StatusForbidden:
		return LoginInvalidCredentials, true
	default:
		return LoginOther, false
	}
}
