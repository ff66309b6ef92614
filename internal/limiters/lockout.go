package limiters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const ipLockKeyPrefix = "ipl"

var (
	// ErrLockoutUnavailable indicates the lockout backend is unreachable.
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")
)

// IPLocker stores time-boxed deny-all locks per identity. Presence of the key
// means locked; the value is the unix-milli instant the lock expires. The key
// TTL is garbage collection only — the authoritative check compares the stored
// instant against the injected clock.
type IPLocker struct {
	redis redis.UniversalClient
	now   func() time.Time
}

// NewIPLocker creates an [IPLocker] backed by the given Redis client.
func NewIPLocker(redisClient redis.UniversalClient, now func() time.Time) *IPLocker {
	if now == nil {
		now = time.Now
	}
	return &IPLocker{redis: redisClient, now: now}
}

func ipLockKey(identity string) string {
	return ipLockKeyPrefix + ":" + identity
}

// Lock sets lockedUntil = now + duration for the identity.
func (l *IPLocker) Lock(ctx context.Context, identity string, duration time.Duration) error {
	until := l.now().Add(duration).UnixMilli()

	err := l.redis.Set(ctx, ipLockKey(identity), strconv.FormatInt(until, 10), duration).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// IsLocked reports whether the identity is currently locked. A missing key
// means unlocked.
func (l *IPLocker) IsLocked(ctx context.Context, identity string) (bool, error) {
	remaining, err := l.Remaining(ctx, identity)
	if err != nil {
		return false, err
	}
	return remaining > 0, nil
}

// Remaining returns the time left on the lock, or zero when unlocked.
func (l *IPLocker) Remaining(ctx context.Context, identity string) (time.Duration, error) {
	val, err := l.redis.Get(ctx, ipLockKey(identity)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	until, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: corrupt lock value", ErrLockoutUnavailable)
	}

	remaining := time.UnixMilli(until).Sub(l.now())
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// Unlock removes the lock for the identity (manual unlock).
func (l *IPLocker) Unlock(ctx context.Context, identity string) error {
	if err := l.redis.Del(ctx, ipLockKey(identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// AccountLockPolicy holds the threshold and duration for account locks.
type AccountLockPolicy struct {
	Threshold int
	Duration  time.Duration
}

// RecordFailure applies one failed credential check to the account-lock state
// and returns the new state. Reaching the threshold sets lockedUntil.
func (p AccountLockPolicy) RecordFailure(failedAttempts int, lockedUntil time.Time, now time.Time) (int, time.Time) {
	failedAttempts++
	if failedAttempts >= p.Threshold {
		lockedUntil = now.Add(p.Duration)
	}
	return failedAttempts, lockedUntil
}

// ResetAccount returns the cleared account-lock state applied after any
// successful authentication.
func ResetAccount() (int, time.Time) {
	return 0, time.Time{}
}

// AccountLocked reports whether the account-lock instant is still in the future.
func AccountLocked(lockedUntil time.Time, now time.Time) bool {
	return !lockedUntil.IsZero() && now.Before(lockedUntil)
}

// AccountRemaining returns the time left on an account lock, floored at zero.
func AccountRemaining(lockedUntil time.Time, now time.Time) time.Duration {
	if lockedUntil.IsZero() {
		return 0
	}
	remaining := lockedUntil.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
