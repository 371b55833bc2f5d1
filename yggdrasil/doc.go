// Package yggdrasil is an HTTP/JSON [yggAuth.RemoteClient] for Yggdrasil
// authentication servers, the Mojang protocol also served by
// authlib-injector compatible skin sites.
//
// Remote rejections and transport failures are reported inside the returned
// response. A non-nil error is only returned when a request could not be
// built at all.
package yggdrasil
