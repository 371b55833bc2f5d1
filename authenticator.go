package yggAuth

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// CredentialAuthenticator logs in with a username/password pair.
//
// Each Authenticate call is an independent attempt; repeating it with the
// same remote responses yields equal results.
type CredentialAuthenticator struct {
	engine      *Engine
	credentials Credentials
}

// Authenticate performs one credential login. See [Engine.Login].
func (a *CredentialAuthenticator) Authenticate(ctx context.Context) AuthenticateResult {
	if a == nil {
		return AuthenticateResult{State: AuthErrInside, Error: insideError(ErrEngineNotReady)}
	}
	return a.engine.Login(ensureAttemptID(ctx), a.credentials)
}

// Credentials returns the credentials this authenticator logs in with.
func (a *CredentialAuthenticator) Credentials() Credentials {
	if a == nil {
		return Credentials{}
	}
	return a.credentials
}

// TokenAuthenticator keeps an existing session alive.
//
// The held session is replaced only when an attempt ends in SUCCESS and the
// held token is still the one the attempt started from. Attempts are not
// serialized, so a slow attempt that finishes after another one rotated the
// token never puts the superseded token back.
type TokenAuthenticator struct {
	engine *Engine

	mu      sync.Mutex
	session Session
}

// Authenticate is [TokenAuthenticator.Reauthenticate] under the
// [Authenticator] contract.
func (a *TokenAuthenticator) Authenticate(ctx context.Context) AuthenticateResult {
	return a.Reauthenticate(ctx)
}

// Reauthenticate validates the held access token and refreshes it when the
// server rejects it. See [Engine.Reauthenticate].
func (a *TokenAuthenticator) Reauthenticate(ctx context.Context) AuthenticateResult {
	if a == nil {
		return AuthenticateResult{State: AuthErrInside, Error: insideError(ErrEngineNotReady)}
	}

	current := a.Session()
	res := a.engine.Reauthenticate(ensureAttemptID(ctx), current)
	if res.State == AuthSuccess {
		a.mu.Lock()
		if a.session.AccessToken == current.AccessToken {
			a.session = res.Session()
		}
		a.mu.Unlock()
	}
	return res
}

// Session returns a copy of the held session.
func (a *TokenAuthenticator) Session() Session {
	if a == nil {
		return Session{}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

func ensureAttemptID(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if attemptIDFromContext(ctx) != "" {
		return ctx
	}
	return WithAttemptID(ctx, uuid.NewString())
}
