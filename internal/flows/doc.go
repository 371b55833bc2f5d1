// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunReauthenticate) accepts a typed dependency
// struct of remote-call closures and returns a classified result. The root
// package owns the protocol payloads; flows only see [CallResult] and decide
// which terminal outcome an attempt reached.
//
// # Architecture boundaries
//
// Flow functions sequence remote calls and convert local faults (returned
// errors and panics) into an Internal outcome. They do NOT build requests,
// keep sessions, emit metrics or write logs. The Engine does.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import yggAuth (to avoid import cycles).
//   - Issue two remote calls concurrently.
package flows
