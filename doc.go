// Package authkit implements the authentication token lifecycle for a
// personal-finance backend: JWT access/refresh pair issuance, server-side
// refresh rotation with single-use invalidation, and logout.
//
// Each user holds at most one live refresh token at a time. Its SHA-256
// fingerprint occupies a Redis slot; login overwrites the slot, refresh
// rotates it through an atomic compare-and-swap, logout clears it. A refresh
// token is valid only while both its signature holds and its fingerprint
// matches the slot.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (TokenPair, Identity, User). Coordination helpers live
// under internal/; transport adapters live in httpapi/, middleware/, and
// client/; user persistence sits behind [UserStore] with implementations in
// memstore/ and gormstore/.
//
// # What this package must NOT do
//
//   - Expose Redis clients or fingerprint encoding in its public API.
//   - Store raw refresh tokens anywhere. Only fingerprints reach Redis.
//   - Distinguish "unknown email" from "wrong password" in returned errors.
package authkit
