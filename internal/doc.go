// Package internal groups code private to yggAuth.
//
// # Sub-packages
//
//   - flows: pure orchestrators for credential login and token
//     re-authentication. They classify remote call results into outcomes
//     and never import the root package.
package internal
