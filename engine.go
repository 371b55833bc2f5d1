package yggAuth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nsiso/yggAuth/internal/flows"
	"github.com/nsiso/yggAuth/token"
	"go.uber.org/zap"
)

// Engine holds the wiring shared by every authenticator: the remote client,
// configuration, logger, metrics and audit dispatcher.
//
// Engine methods are safe for concurrent use. Each call runs its own
// protocol sequence; the engine itself keeps no session state.
type Engine struct {
	config  Config
	client  RemoteClient
	logger  *zap.Logger
	audit   *auditDispatcher
	metrics *Metrics
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	_ = e.logger.Sync()
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine's counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the validated configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// NewCredentialAuthenticator returns an authenticator that logs in with creds.
func (e *Engine) NewCredentialAuthenticator(creds Credentials) *CredentialAuthenticator {
	return &CredentialAuthenticator{engine: e, credentials: creds}
}

// NewTokenAuthenticator returns an authenticator that keeps sess alive by
// validating and, when needed, refreshing its access token.
func (e *Engine) NewTokenAuthenticator(sess Session) *TokenAuthenticator {
	return &TokenAuthenticator{engine: e, session: sess}
}

// callContext applies Config.RequestTimeout to one remote call.
func (e *Engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.config.RequestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.config.RequestTimeout)
}

func (e *Engine) observe(id MetricID, start time.Time) {
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(id, time.Since(start))
	}
}

func (e *Engine) logFields(ctx context.Context, fields ...zap.Field) []zap.Field {
	if id := attemptIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("attempt_id", id))
	}
	if e.config.ProxyAuthServerAddress != "" {
		fields = append(fields, zap.String("proxy", e.config.ProxyAuthServerAddress))
	}
	return fields
}

// remoteError returns the error a failed response carried, synthesizing one
// from the status code when the client attached none.
func remoteError(err *Error, status int) *Error {
	if err != nil {
		return err
	}
	msg := http.StatusText(status)
	if msg == "" {
		msg = "remote call failed"
	}
	return &Error{Message: msg, StatusCode: status}
}

func callResult(success bool, status int, err *Error) flows.CallResult {
	res := flows.CallResult{Success: success, StatusCode: status}
	if err != nil {
		res.Cause = err.Cause
	}
	return res
}

func insideError(err error) *Error {
	if err == nil {
		err = fmt.Errorf("internal fault")
	}
	return &Error{Message: err.Error(), Cause: err}
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}

// tokenExpiry reads the exp claim of JWT access tokens; opaque or malformed
// tokens yield nil.
func tokenExpiry(accessToken string) *time.Time {
	if accessToken == "" {
		return nil
	}
	info, err := token.Inspect(accessToken)
	if err != nil || !info.HasExpiry() {
		return nil
	}
	exp := info.ExpiresAt
	return &exp
}
