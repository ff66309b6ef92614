package authguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/verisec/authguard/internal/audit"
	"github.com/verisec/authguard/internal/captcha"
	"github.com/verisec/authguard/internal/limiters"
	"github.com/verisec/authguard/internal/notify"
	"github.com/verisec/authguard/internal/rate"
	"github.com/verisec/authguard/internal/stores"
	"github.com/verisec/authguard/jwt"
	"github.com/verisec/authguard/password"
)

// Engine defines a public type used by authguard APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// All methods are safe for concurrent use after [Builder.Build].
type Engine struct {
	config Config

	users    UserProvider
	renderer Renderer
	rand     RandomSource

	hasher *password.Hasher
	policy password.Policy
	signer *jwt.Signer

	rateLimiter  *rate.Limiter
	ipLocks      *limiters.IPLocker
	captchaStore *stores.CaptchaStore
	otpStore     *stores.OTPStore
	captchaGen   *captcha.Generator

	notify  *notify.Dispatcher
	audit   *audit.Dispatcher
	metrics *Metrics

	now func() time.Time
}

// Close flushes the audit and delivery dispatchers. The engine must not be
// used after Close.
func (e *Engine) Close() {
	e.notify.Close()
	e.audit.Close()
}

// Metrics returns a point-in-time snapshot of the engine counters.
func (e *Engine) Metrics() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// gate runs the admission sequence shared by protected operations: reject if
// the identity is IP-locked, then charge the request against the action's
// sliding-window budget. Rate denial on register/login additionally trips the
// IP lock; denial on other actions surfaces the fixed retry hint.
func (e *Engine) gate(ctx context.Context, identity string, action Action) error {
	if identity == "" {
		return nil
	}

	remaining, err := e.ipLocks.Remaining(ctx, identity)
	if err != nil {
		return err
	}
	if remaining > 0 {
		e.metrics.inc(MetricRateLimited)
		return &RateLimitError{RetryAfter: remaining}
	}

	allowed, err := e.rateLimiter.Check(ctx, identity, action.String(), e.config.RateLimit.LimitFor(action), e.config.RateLimit.Window)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}

	e.metrics.inc(MetricRateLimited)
	e.emit(ctx, AuditEvent{
		EventType: EventRateLimited,
		IP:        identity,
		Metadata:  map[string]string{"action": action.String()},
	})

	if action == ActionRegister || action == ActionLogin {
		if err := e.ipLocks.Lock(ctx, identity, e.config.Lockout.IPLockDuration); err != nil {
			return err
		}
		e.metrics.inc(MetricIPLocked)
		e.emit(ctx, AuditEvent{
			EventType: EventIPLocked,
			IP:        identity,
			Metadata:  map[string]string{"action": action.String()},
		})
		return &RateLimitError{RetryAfter: e.config.Lockout.IPLockDuration}
	}

	return &RateLimitError{RetryAfter: e.config.RateLimit.RetryHint}
}

func (e *Engine) emit(ctx context.Context, event AuditEvent) {
	if e.audit == nil {
		return
	}
	event.Timestamp = e.now()
	e.audit.Emit(ctx, event)
}

// accountLockPolicy returns the configured account-lock transition rules.
func (e *Engine) accountLockPolicy() limiters.AccountLockPolicy {
	return limiters.AccountLockPolicy{
		Threshold: e.config.Lockout.AccountLockThreshold,
		Duration:  e.config.Lockout.AccountLockDuration,
	}
}

// dispatchOTP hands a code to the background delivery dispatcher. It never
// blocks and never fails the caller: the issuing side effect has already
// committed, and resend is the recovery path.
func (e *Engine) dispatchOTP(user UserRecord, code string, purpose OTPPurpose) {
	destination := user.Email
	if purpose == PurposePhoneVerify {
		destination = user.Phone
	}
	if destination == "" {
		return
	}

	e.notify.Enqueue(notify.Message{
		Destination: destination,
		Code:        code,
		Purpose:     purpose.String(),
		UserID:      user.UserID,
	})
}

// mapCaptchaErr translates store sentinels into the public captcha taxonomy.
func mapCaptchaErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrNotFound):
		return ErrCaptchaNotFound
	case errors.Is(err, stores.ErrExpired):
		return ErrCaptchaExpired
	case errors.Is(err, stores.ErrExhausted):
		return ErrCaptchaExhausted
	case errors.Is(err, stores.ErrMismatch):
		return ErrCaptchaInvalid
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

// mapOTPErr translates store sentinels into the public OTP taxonomy.
func mapOTPErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrNotFound):
		return ErrOTPNotFound
	case errors.Is(err, stores.ErrExpired):
		return ErrOTPExpired
	case errors.Is(err, stores.ErrExhausted):
		return ErrOTPExhausted
	case errors.Is(err, stores.ErrAlreadyUsed):
		return ErrOTPAlreadyUsed
	case errors.Is(err, stores.ErrMismatch):
		return ErrOTPInvalid
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
