// Package auth resolves HTTP and WebSocket callers to an actor identity.
//
// Access tokens are HS256 JWTs whose subject is the actor id. Tokens are
// validated by signature and expiry only; whether the actor may touch a
// given device is decided by package access.
package auth
