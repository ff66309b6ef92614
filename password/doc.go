// Package password covers both halves of credential hygiene: argon2id
// hashing/verification of stored credentials, and the deterministic strength
// policy applied to candidate passwords at registration and reset.
package password
