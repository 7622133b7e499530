// Package token issues and verifies the JWT pair used by the engine: a
// short-lived access token and a long-lived refresh token, each signed with
// its own HS256 secret.
//
// Kind separation is structural. The two kinds share no secret and carry
// distinct issuer tags, so presenting a refresh token where an access token
// is expected fails verification at the signature level, before any claim is
// inspected.
//
// The package performs no I/O and holds no mutable state after construction.
package token
