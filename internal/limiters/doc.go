// Package limiters implements the two lockout mechanisms: time-boxed IP locks
// stored in Redis, and the pure state transitions for account locks whose
// state lives on the host's user record. The two are independent.
package limiters
