// Package internal holds helpers private to authkit.
package internal

import "crypto/sha256"

// FingerprintToken digests a raw refresh token for server-side storage.
// The session store only ever holds this digest, so a dump of Redis does not
// yield usable credentials.
func FingerprintToken(raw string) [32]byte {
	return sha256.Sum256([]byte(raw))
}
