package flows

import "context"

// LoginOutcome classifies a credential login attempt for root-level mapping.
type LoginOutcome int

const (
	LoginSuccess LoginOutcome = iota
	LoginMethodNotAllowed
	LoginNotFound
	LoginInvalidCredentials
	LoginTimeout
	LoginOther
	LoginInternal
)

// LoginResult carries the outcome and, for LoginInternal, the local fault.
type LoginResult struct {
	Outcome    LoginOutcome
	StatusCode int
	Err        error
}

// LoginDeps captures credential login dependencies.
type LoginDeps struct {
	Authenticate Call
	IsTimeout    func(error) bool
}

// RunLogin performs a single authenticate call and classifies its outcome.
//
// A rejected call is classified by status code first (405, 404, 403), then
// by a cancellation/timeout cause; anything else is LoginOther.
func RunLogin(ctx context.Context, deps LoginDeps) LoginResult {
	call, err := guard(ctx, "authenticate", deps.Authenticate)
	if err != nil {
		return LoginResult{Outcome: LoginInternal, Err: err}
	}
	if call.Success {
		return LoginResult{Outcome: LoginSuccess, StatusCode: call.StatusCode}
	}

	if outcome, ok := statusOutcome(call.StatusCode); ok {
		return LoginResult{Outcome: outcome, StatusCode: call.StatusCode}
	}
	if isTimeout(call.Cause, deps.IsTimeout) {
		return LoginResult{Outcome: LoginTimeout, StatusCode: call.StatusCode}
	}
	return LoginResult{Outcome: LoginOther, StatusCode: call.StatusCode}
}
