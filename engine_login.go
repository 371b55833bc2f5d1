package yggAuth

import (
	"context"
	"time"

	"github.com/nsiso/yggAuth/internal/flows"
	"go.uber.org/zap"
)

var loginStates = map[flows.LoginOutcome]AuthState{
	flows.LoginSuccess:            AuthSuccess,
	flows.LoginMethodNotAllowed:   AuthErrMethodNotAllowed,
	flows.LoginNotFound:           AuthErrNotFound,
	flows.LoginInvalidCredentials: AuthErrInvalidCredentials,
	flows.LoginTimeout:            AuthErrTimeout,
	flows.LoginOther:              AuthErrOther,
	flows.LoginInternal:           AuthErrInside,
}

var loginMetrics = map[AuthState]MetricID{
	AuthSuccess:               MetricLoginSuccess,
	AuthErrMethodNotAllowed:   MetricLoginMethodNotAllowed,
	AuthErrNotFound:           MetricLoginNotFound,
	AuthErrInvalidCredentials: MetricLoginInvalidCredentials,
	AuthErrTimeout:            MetricLoginTimeout,
	AuthErrOther:              MetricLoginOther,
	AuthErrInside:             MetricLoginInternal,
}

// Login exchanges creds for a session with a single authenticate call.
//
// On success the result carries the access token, selected profile, user
// data and every available profile. On failure the state is chosen by status
// code (405, 404, 403), then by a timeout cause, else ERR_OTHER, and the
// remote error is attached. Local faults, including panics raised by the
// remote client, become ERR_INSIDE. Login never panics.
func (e *Engine) Login(ctx context.Context, creds Credentials) (result AuthenticateResult) {
	if e == nil || e.client == nil {
		return AuthenticateResult{State: AuthErrInside, Error: insideError(ErrEngineNotReady)}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	defer func() {
		if r := recover(); r != nil {
			result = AuthenticateResult{State: AuthErrInside, Error: insideError(panicError(r))}
			e.finishLogin(ctx, result, 0)
		}
	}()

	var resp *AuthenticateResponse
	outcome := flows.RunLogin(ctx, flows.LoginDeps{
		Authenticate: func(ctx context.Context) (flows.CallResult, error) {
			req := AuthenticateRequest{
				Credentials: creds,
				Address:     e.config.endpoint("authenticate"),
				Arguments:   e.config.arguments(),
			}

			callCtx, cancel := e.callContext(ctx)
			defer cancel()

			start := time.Now()
			r, err := e.client.Authenticate(callCtx, req)
			e.observe(MetricAuthenticateLatency, start)
			if err != nil {
				return flows.CallResult{}, err
			}
			if r == nil {
				return flows.CallResult{}, ErrNilResponse
			}
			resp = r
			return callResult(r.Success, r.StatusCode, r.Error), nil
		},
		IsTimeout: IsTimeout,
	})

	state := loginStates[outcome.Outcome]
	switch {
	case state == AuthErrInside:
		result = AuthenticateResult{State: AuthErrInside, Error: insideError(outcome.Err)}
	case state == AuthSuccess:
		result = AuthenticateResult{
			State:           AuthSuccess,
			AccessToken:     resp.AccessToken,
			SelectedProfile: resp.SelectedProfile,
			User:            resp.User,
			Profiles:        resp.AvailableProfiles,
			ExpiresAt:       tokenExpiry(resp.AccessToken),
		}
	default:
		result = AuthenticateResult{State: state, Error: remoteError(resp.Error, resp.StatusCode)}
	}

	e.finishLogin(ctx, result, outcome.StatusCode)
	return result
}

func (e *Engine) finishLogin(ctx context.Context, result AuthenticateResult, status int) {
	if id, ok := loginMetrics[result.State]; ok {
		e.metricInc(id)
	}

	fields := e.logFields(ctx,
		zap.Stringer("state", result.State),
		zap.Int("status", status),
	)
	if result.State == AuthErrInside {
		e.logger.Warn("login interrupted by internal fault", append(fields, zap.Error(result.Error))...)
	} else {
		e.logger.Debug("login finished", fields...)
	}

	e.emitAudit(ctx, auditEventLogin, result.Succeeded(), result.State.String(), result.Session(), result.Error, status)
}
