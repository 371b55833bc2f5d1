package flows

import "context"

// ReauthOutcome classifies a token re-authentication attempt.
type ReauthOutcome int

const (
	// ReauthValidated means the current token is still live; nothing changes.
	ReauthValidated ReauthOutcome = iota
	// ReauthRefreshed means validate failed and refresh issued a new token.
	ReauthRefreshed
	// ReauthTimeout means the refresh call was cancelled or timed out.
	ReauthTimeout
	// ReauthRequireLogin means refresh was rejected; a credential login is needed.
	ReauthRequireLogin
	// ReauthInternal means a local fault interrupted the attempt.
	ReauthInternal
)

// ReauthStage names the remote call a result was decided on.
type ReauthStage int

const (
	StageValidate ReauthStage = iota
	StageRefresh
)

// ReauthResult carries the outcome, the stage it was reached at, and the
// local fault for ReauthInternal.
type ReauthResult struct {
	Outcome ReauthOutcome
	Stage   ReauthStage
	Err     error
}

// ReauthDeps captures validate-then-refresh dependencies.
type ReauthDeps struct {
	Validate  Call
	Refresh   Call
	IsTimeout func(error) bool
}

// RunReauthenticate validates the current token and falls back to refresh.
// At most two remote calls are made, strictly in order; refresh is only
// issued once validate's response is known to be a rejection.
func RunReauthenticate(ctx context.Context, deps ReauthDeps) ReauthResult {
	validated, err := guard(ctx, "validate", deps.Validate)
	if err != nil {
		return ReauthResult{Outcome: ReauthInternal, Stage: StageValidate, Err: err}
	}
	if validated.Success {
		return ReauthResult{Outcome: ReauthValidated, Stage: StageValidate}
	}

	refreshed, err := guard(ctx, "refresh", deps.Refresh)
	if err != nil {
		return ReauthResult{Outcome: ReauthInternal, Stage: StageRefresh, Err: err}
	}

	switch {
	case refreshed.Success:
		return ReauthResult{Outcome: ReauthRefreshed, Stage: StageRefresh}
	case isTimeout(refreshed.Cause, deps.IsTimeout):
		return ReauthResult{Outcome: ReauthTimeout, Stage: StageRefresh}
	default:
		return ReauthResult{Outcome: ReauthRequireLogin, Stage: StageRefresh}
	}
}
