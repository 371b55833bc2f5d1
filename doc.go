// Package yggAuth authenticates a game launcher against a Yggdrasil identity
// service and reduces every outcome to a single [AuthenticateResult].
//
// Two strategies are provided. [CredentialAuthenticator] exchanges a
// username and password for a session. [TokenAuthenticator] keeps an existing
// session alive by validating its access token and refreshing it when the
// server rejects it. Both implement [Authenticator].
//
// # Architecture boundaries
//
// yggAuth is the public surface: [Engine], [Builder], [Config] and the result
// types. The remote protocol sits behind [RemoteClient]; package yggdrasil
// provides the HTTP/JSON implementation. Flow orchestration lives in
// internal/flows and never imports this package.
//
// # Fault containment
//
// Authentication entry points never panic and never return a Go error.
// Remote rejections, timeouts and local faults are all reported through
// [AuthState]:
//
//	SUCCESS               session is live
//	ERR_METHOD_NOT_ALLOW  authenticate answered 405
//	ERR_NOTFOUND          authenticate answered 404
//	ERR_INVALID_CRDL      authenticate answered 403
//	ERR_TIMEOUT           the remote call was cancelled or timed out
//	REQ_LOGIN             refresh was rejected, log in again
//	ERR_OTHER             any other remote failure
//	ERR_INSIDE            local fault (client error, nil response, panic)
//
// Engine methods are safe for concurrent use after [Builder.Build].
package yggAuth
