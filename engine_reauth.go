package yggAuth

import (
	"context"
	"time"

	"github.com/nsiso/yggAuth/internal/flows"
	"go.uber.org/zap"
)

// Reauthenticate keeps sess alive: it validates the access token and, when
// the server rejects it, asks for a refreshed one.
//
// sess is taken by value; the returned result always echoes a session, the
// refreshed one on a successful refresh and sess unchanged otherwise. States:
// SUCCESS (still valid or refreshed), ERR_TIMEOUT (refresh timed out),
// REQ_LOGIN (refresh rejected), ERR_INSIDE (local fault at any step).
func (e *Engine) Reauthenticate(ctx context.Context, sess Session) (result AuthenticateResult) {
	if e == nil || e.client == nil {
		return echoResult(sess, AuthErrInside, insideError(ErrEngineNotReady))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	defer func() {
		if r := recover(); r != nil {
			result = echoResult(sess, AuthErrInside, insideError(panicError(r)))
			e.finishReauth(ctx, result, flows.StageValidate, 0)
		}
	}()

	var (
		validated *ValidateResponse
		refreshed *RefreshResponse
	)
	outcome := flows.RunReauthenticate(ctx, flows.ReauthDeps{
		Validate: func(ctx context.Context) (flows.CallResult, error) {
			callCtx, cancel := e.callContext(ctx)
			defer cancel()

			start := time.Now()
			r, err := e.client.Validate(callCtx, e.tokenRequest(sess, "validate"))
			e.observe(MetricValidateLatency, start)
			if err != nil {
				return flows.CallResult{}, err
			}
			if r == nil {
				return flows.CallResult{}, ErrNilResponse
			}
			validated = r
			return callResult(r.Success, r.StatusCode, r.Error), nil
		},
		Refresh: func(ctx context.Context) (flows.CallResult, error) {
			callCtx, cancel := e.callContext(ctx)
			defer cancel()

			start := time.Now()
			r, err := e.client.Refresh(callCtx, e.tokenRequest(sess, "refresh"))
			e.observe(MetricRefreshLatency, start)
			if err != nil {
				return flows.CallResult{}, err
			}
			if r == nil {
				return flows.CallResult{}, ErrNilResponse
			}
			if r.Success && r.AccessToken == "" {
				return flows.CallResult{}, ErrEmptyAccessToken
			}
			refreshed = r
			return callResult(r.Success, r.StatusCode, r.Error), nil
		},
		IsTimeout: IsTimeout,
	})

	if validated != nil {
		e.recordValidate(ctx, sess, validated)
	}

	switch outcome.Outcome {
	case flows.ReauthValidated:
		result = echoResult(sess, AuthSuccess, nil)
	case flows.ReauthRefreshed:
		next := sess
		next.AccessToken = refreshed.AccessToken
		if refreshed.SelectedProfile != nil {
			next.SelectedProfile = refreshed.SelectedProfile
		}
		if refreshed.User != nil {
			next.User = refreshed.User
		}
		result = echoResult(next, AuthSuccess, nil)
	case flows.ReauthTimeout:
		result = echoResult(sess, AuthErrTimeout, remoteError(refreshed.Error, refreshed.StatusCode))
	case flows.ReauthRequireLogin:
		result = echoResult(sess, AuthRequireLogin, remoteError(refreshed.Error, refreshed.StatusCode))
	default:
		result = echoResult(sess, AuthErrInside, insideError(outcome.Err))
	}

	refreshStatus := 0
	if refreshed != nil {
		refreshStatus = refreshed.StatusCode
	}
	e.finishReauth(ctx, result, outcome.Stage, refreshStatus)
	return result
}

func (e *Engine) tokenRequest(sess Session, op string) TokenRequest {
	return TokenRequest{
		AccessToken: sess.AccessToken,
		Address:     e.config.endpoint(op),
		Arguments:   e.config.arguments(),
	}
}

func echoResult(sess Session, state AuthState, err *Error) AuthenticateResult {
	return AuthenticateResult{
		State:           state,
		AccessToken:     sess.AccessToken,
		SelectedProfile: sess.SelectedProfile,
		User:            sess.User,
		Error:           err,
		ExpiresAt:       tokenExpiry(sess.AccessToken),
	}
}

func (e *Engine) recordValidate(ctx context.Context, sess Session, resp *ValidateResponse) {
	if resp.Success {
		e.metricInc(MetricValidateSuccess)
	} else {
		e.metricInc(MetricValidateFailure)
	}

	state := auditStateValid
	var err *Error
	if !resp.Success {
		state = auditStateInvalid
		err = remoteError(resp.Error, resp.StatusCode)
	}
	e.emitAudit(ctx, auditEventValidate, resp.Success, state, sess, err, resp.StatusCode)
}

func (e *Engine) finishReauth(ctx context.Context, result AuthenticateResult, stage flows.ReauthStage, refreshStatus int) {
	switch {
	case result.State == AuthErrInside:
		e.metricInc(MetricReauthInternal)
	case stage == flows.StageRefresh && result.State == AuthSuccess:
		e.metricInc(MetricRefreshSuccess)
	case result.State == AuthErrTimeout:
		e.metricInc(MetricRefreshTimeout)
	case result.State == AuthRequireLogin:
		e.metricInc(MetricRefreshFailure)
	}

	fields := e.logFields(ctx,
		zap.Stringer("state", result.State),
		zap.Bool("refreshed", stage == flows.StageRefresh),
	)
	if result.ExpiresAt != nil {
		fields = append(fields, zap.Time("token_expires_at", *result.ExpiresAt))
	}
	if result.State == AuthErrInside {
		e.logger.Warn("reauthentication interrupted by internal fault", append(fields, zap.Error(result.Error))...)
	} else {
		e.logger.Debug("reauthentication finished", fields...)
	}

	state := result.State.String()
	if stage == flows.StageRefresh && result.State != AuthErrInside {
		e.emitAudit(ctx, auditEventRefresh, result.Succeeded(), state, result.Session(), result.Error, refreshStatus)
	}
	e.emitAudit(ctx, auditEventReauthenticate, result.Succeeded(), state, result.Session(), result.Error, refreshStatus)
}
