// Package session stores the single refresh slot each user holds in Redis.
//
// The slot maps a user ID to the SHA-256 fingerprint of their one live
// refresh token. Issuing a new pair overwrites the slot, logout deletes it,
// and refresh rotates it through a Lua compare-and-swap so that concurrent
// refreshes with the same token have exactly one winner.
//
// # What this package must NOT do
//
//   - Inspect or store raw refresh tokens. Only fingerprints cross this
//     boundary.
//   - Delete the slot on a failed rotation. A loser must leave the winner's
//     state in place.
package session
