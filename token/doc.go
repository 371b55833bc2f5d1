// Package token inspects Yggdrasil access tokens on the client side.
//
// Modern Yggdrasil servers issue JWT access tokens whose claims carry the
// account subject, the selected profile ("spr") and the expiry. Older servers
// issue opaque hex tokens. [Inspect] reads the claims of the former and
// reports [ErrOpaqueToken] for the latter.
//
// # What this package must NOT do
//
//   - Verify signatures: the launcher never holds the server's signing key,
//     and the server remains the only authority on token validity.
//   - Perform I/O.
//   - Import yggAuth.
package token
