package yggAuth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuthState is the terminal outcome of one authentication attempt.
//
// Exactly one AuthState is set on every [AuthenticateResult].
type AuthState uint8

const (
	// AuthSuccess means the session is live and the result carries its fields.
	AuthSuccess AuthState = iota
	// AuthErrMethodNotAllowed maps an HTTP 405 from the authenticate endpoint.
	AuthErrMethodNotAllowed
	// AuthErrNotFound maps an HTTP 404 from the authenticate endpoint.
	AuthErrNotFound
	// AuthErrInvalidCredentials maps an HTTP 403 from the authenticate endpoint.
	AuthErrInvalidCredentials
	// AuthErrTimeout means the in-flight remote call was cancelled or timed out.
	AuthErrTimeout
	// AuthRequireLogin means the session cannot be recovered and a fresh
	// credential login is required.
	AuthRequireLogin
	// AuthErrOther is any remote failure that has no more specific state.
	AuthErrOther
	// AuthErrInside is a local fault raised while running the attempt.
	AuthErrInside
)

var authStateNames = [...]string{
	AuthSuccess:               "SUCCESS",
	AuthErrMethodNotAllowed:   "ERR_METHOD_NOT_ALLOW",
	AuthErrNotFound:           "ERR_NOTFOUND",
	AuthErrInvalidCredentials: "ERR_INVALID_CRDL",
	AuthErrTimeout:            "ERR_TIMEOUT",
	AuthRequireLogin:          "REQ_LOGIN",
	AuthErrOther:              "ERR_OTHER",
	AuthErrInside:             "ERR_INSIDE",
}

// String returns the launcher-facing name of s, e.g. "ERR_INVALID_CRDL".
func (s AuthState) String() string {
	if int(s) < len(authStateNames) {
		return authStateNames[s]
	}
	return "UNKNOWN"
}

// MarshalText encodes s by name so results serialize readably.
func (s AuthState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Credentials is the identifier/secret pair exchanged for a session token.
type Credentials struct {
	Username string
	Password string
}

// Profile is a game profile owned by the authenticated account.
type Profile struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// UserProperty is a single name/value pair attached to an account.
type UserProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// UserData is the account record returned by the identity service.
type UserData struct {
	ID         string         `json:"id"`
	Properties []UserProperty `json:"properties,omitempty"`
}

// Session is the authenticated token/profile/user triple held between
// launches. It is a plain value: copying it copies the identity.
type Session struct {
	AccessToken     string
	SelectedProfile *Profile
	User            *UserData
}

// AuthenticateResult is the sole return value of an authentication attempt.
// Payload fields are only meaningful for [AuthSuccess], except results from
// token re-authentication, which always echo the current session.
type AuthenticateResult struct {
	State           AuthState  `json:"state"`
	AccessToken     string     `json:"accessToken,omitempty"`
	SelectedProfile *Profile   `json:"selectedProfile,omitempty"`
	User            *UserData  `json:"user,omitempty"`
	Profiles        []Profile  `json:"availableProfiles,omitempty"`
	Error           *Error     `json:"error,omitempty"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
}

// Succeeded reports whether r.State is [AuthSuccess].
func (r AuthenticateResult) Succeeded() bool {
	return r.State == AuthSuccess
}

// Session returns the token/profile/user triple carried by r.
func (r AuthenticateResult) Session() Session {
	return Session{
		AccessToken:     r.AccessToken,
		SelectedProfile: r.SelectedProfile,
		User:            r.User,
	}
}

// TokenExpiresAt returns the access token expiry when the server issued a
// JWT access token carrying one.
func (r AuthenticateResult) TokenExpiresAt() (time.Time, bool) {
	if r.ExpiresAt == nil {
		return time.Time{}, false
	}
	return *r.ExpiresAt, true
}

// Authenticator is implemented by both [CredentialAuthenticator] and
// [TokenAuthenticator] so launch logic can hold either behind one contract.
type Authenticator interface {
	Authenticate(ctx context.Context) AuthenticateResult
}

// AuthenticateRequest is the input of [RemoteClient.Authenticate].
// Address, when non-empty, is the full endpoint URL replacing the default.
type AuthenticateRequest struct {
	Credentials Credentials
	Address     string
	Arguments   []string
}

// TokenRequest is the input of [RemoteClient.Validate] and [RemoteClient.Refresh].
type TokenRequest struct {
	AccessToken string
	Address     string
	Arguments   []string
}

// AuthenticateResponse is the outcome of a remote authenticate call.
type AuthenticateResponse struct {
	Success           bool
	StatusCode        int
	AccessToken       string
	SelectedProfile   *Profile
	User              *UserData
	AvailableProfiles []Profile
	Error             *Error
}

// ValidateResponse is the outcome of a remote validate call.
type ValidateResponse struct {
	Success    bool
	StatusCode int
	Error      *Error
}

// RefreshResponse is the outcome of a remote refresh call. SelectedProfile
// and User are only set when the server chose to return them.
type RefreshResponse struct {
	Success         bool
	StatusCode      int
	AccessToken     string
	SelectedProfile *Profile
	User            *UserData
	Error           *Error
}

// RemoteClient speaks the Yggdrasil protocol on behalf of the authenticators.
//
// Remote failures (HTTP errors, dial failures, timeouts) are reported in the
// response with Success=false. A non-nil Go error means the call could not be
// attempted at all and is treated as a local fault.
type RemoteClient interface {
	Authenticate(ctx context.Context, req AuthenticateRequest) (*AuthenticateResponse, error)
	Validate(ctx context.Context, req TokenRequest) (*ValidateResponse, error)
	Refresh(ctx context.Context, req TokenRequest) (*RefreshResponse, error)
}
