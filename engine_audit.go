package yggAuth

import (
	"context"
	"strconv"
	"time"
)

const (
	auditEventLogin          = "login"
	auditEventValidate       = "validate"
	auditEventRefresh        = "refresh"
	auditEventReauthenticate = "reauthenticate"

	auditStateValid   = "VALID"
	auditStateInvalid = "INVALID"
)

// AuditErrorCode is the coarse error class recorded in AuditEvent.Error.
// Remote error messages are not copied since servers may echo user input.
type AuditErrorCode string

const (
	auditErrMethodNotAllowed   AuditErrorCode = "method_not_allowed"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrTimeout            AuditErrorCode = "timeout"
	auditErrRemote             AuditErrorCode = "remote_error"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	state string,
	sess Session,
	err *Error,
	status int,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		AttemptID: attemptIDFromContext(ctx),
		State:     state,
		Success:   success,
	}
	if sess.SelectedProfile != nil {
		event.ProfileID = sess.SelectedProfile.ID.String()
	}
	if sess.User != nil {
		event.UserID = sess.User.ID
	}
	if !success {
		event.Error = string(auditErrorCode(state, err, status))
	}

	metadata := map[string]string{}
	if status != 0 {
		metadata["status"] = strconv.Itoa(status)
	}
	if e.config.ProxyAuthServerAddress != "" {
		metadata["endpoint"] = "proxy"
	}
	if err != nil && err.Kind != "" {
		metadata["remote_error"] = err.Kind
	}
	if len(metadata) != 0 {
		event.Metadata = metadata
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(state string, err *Error, status int) AuditErrorCode {
	switch state {
	case AuthErrMethodNotAllowed.String():
		return auditErrMethodNotAllowed
	case AuthErrNotFound.String():
		return auditErrNotFound
	case AuthErrInvalidCredentials.String():
		return auditErrInvalidCredentials
	case AuthErrTimeout.String():
		return auditErrTimeout
	case AuthErrInside.String():
		return auditErrInternal
	case AuthRequireLogin.String(), auditStateInvalid:
		if err != nil && IsTimeout(err.Cause) {
			return auditErrTimeout
		}
		if status == 403 || status == 401 {
			return auditErrInvalidToken
		}
		return auditErrRemote
	default:
		return auditErrRemote
	}
}
