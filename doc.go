// Package authguard is the authentication-defense core for web applications:
// per-request admission decisions (rate limits, IP and account lockouts) and the
// stateful challenge flows (CAPTCHA, one-time codes) that gate registration,
// login, and password recovery.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. All shared mutable state — sliding-window counters, IP locks,
// CAPTCHA challenges, OTP records — lives in Redis, and every read-modify-write
// on a key is performed as an atomic unit.
//
// # Architecture boundaries
//
// authguard is the public surface. It exposes [Engine], [Builder], [Config],
// the collaborator contracts ([UserProvider], [Notifier], [Renderer]), and value
// types. Internal coordination — counter pruning, record encoding, lockout math,
// delivery dispatch — lives under internal/ and is never exported.
//
// The core deliberately does not own persistence of user accounts (that is the
// host's [UserProvider]), does not transport codes (that is the host's
// [Notifier], called best-effort and off the request path), and does not serve
// HTTP. See examples/http-minimal for a wiring sketch.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or record encodings in its public API.
//   - Return a CAPTCHA answer or an OTP code to the verifying side.
//   - Block or fail an issuing operation because notification delivery failed.
package authguard
