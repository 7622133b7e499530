// Package password hashes and verifies user passwords with bcrypt.
//
// Hashes are self-describing bcrypt strings; the cost only applies to newly
// created hashes, so it can be raised without invalidating stored ones.
package password
