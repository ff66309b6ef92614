package authguard

import (
	"context"
	"time"
)

// CheckRate charges one request for identity against the action's budget and
// reports whether it was admitted. It applies only the sliding-window check;
// use [Engine.IsIPLocked] for the lock overlay. Hosts call this to protect
// endpoints the engine does not own.
func (e *Engine) CheckRate(ctx context.Context, identity string, action Action) (bool, error) {
	if identity == "" {
		return true, nil
	}
	return e.rateLimiter.Check(ctx, identity, action.String(), e.config.RateLimit.LimitFor(action), e.config.RateLimit.Window)
}

// RateCount returns the number of requests identity has made for action
// inside the current window, without charging a new one.
func (e *Engine) RateCount(ctx context.Context, identity string, action Action) (int, error) {
	return e.rateLimiter.Count(ctx, identity, action.String(), e.config.RateLimit.Window)
}

// ResetRate clears identity's recorded requests for action. Admin surface.
func (e *Engine) ResetRate(ctx context.Context, identity string, action Action) error {
	return e.rateLimiter.Reset(ctx, identity, action.String())
}

// IsIPLocked reports whether identity currently holds an active IP lock.
func (e *Engine) IsIPLocked(ctx context.Context, identity string) (bool, error) {
	return e.ipLocks.IsLocked(ctx, identity)
}

// IPLockRemaining returns how long identity stays locked. Zero means not
// locked.
func (e *Engine) IPLockRemaining(ctx context.Context, identity string) (time.Duration, error) {
	return e.ipLocks.Remaining(ctx, identity)
}

// UnlockIP removes identity's IP lock ahead of its expiry. Admin surface; the
// recorded request history is untouched, so a still-hot identity relocks on
// its next denied request.
func (e *Engine) UnlockIP(ctx context.Context, identity string) error {
	return e.ipLocks.Unlock(ctx, identity)
}
