package stores

import "errors"

var (
	// ErrNotFound indicates no record exists for the key.
	ErrNotFound = errors.New("record not found")
	// ErrExpired indicates the record's lifetime has elapsed.
	ErrExpired = errors.New("record expired")
	// ErrExhausted indicates the attempt budget is spent.
	ErrExhausted = errors.New("record attempts exceeded")
	// ErrAlreadyUsed indicates the record (or the submitted code) was consumed
	// or superseded.
	ErrAlreadyUsed = errors.New("record already used")
	// ErrMismatch indicates the submitted answer did not match.
	ErrMismatch = errors.New("answer mismatch")
	// ErrUnavailable indicates the record backend is unreachable.
	ErrUnavailable = errors.New("record backend unavailable")
)
