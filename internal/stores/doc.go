// Package stores implements the Redis-backed record stores for CAPTCHA
// challenges and one-time codes. Records are binary-encoded with a leading
// version byte, and every attempt-counting mutation runs inside an optimistic
// WATCH transaction so concurrent submissions never lose increments.
//
// Key TTLs act as garbage collection; the authoritative expiry decision always
// compares the record's own timestamps against the injected clock.
package stores
