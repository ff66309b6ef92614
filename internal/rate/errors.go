package rate

import "errors"

var (
	// ErrCounterUnavailable indicates the counter backend is unreachable.
	ErrCounterUnavailable = errors.New("rate counter backend unavailable")
)
