package authguard

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEngineNotReady is an exported constant or variable used by the security core.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidCredentials is an exported constant or variable used by the security core.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is an exported constant or variable used by the security core.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is an exported constant or variable used by the security core.
	ErrAccountExists = errors.New("account already exists")
	// ErrRateLimited is an exported constant or variable used by the security core.
	ErrRateLimited = errors.New("too many requests")
	// ErrAccountLocked is an exported constant or variable used by the security core.
	ErrAccountLocked = errors.New("account locked")
	// ErrCaptchaRequired is an exported constant or variable used by the security core.
	ErrCaptchaRequired = errors.New("captcha verification required")
	// ErrCaptchaNotFound is an exported constant or variable used by the security core.
	ErrCaptchaNotFound = errors.New("captcha challenge not found")
	// ErrCaptchaExpired is an exported constant or variable used by the security core.
	ErrCaptchaExpired = errors.New("captcha challenge expired")
	// ErrCaptchaExhausted is an exported constant or variable used by the security core.
	ErrCaptchaExhausted = errors.New("captcha attempts exceeded")
	// ErrCaptchaInvalid is an exported constant or variable used by the security core.
	ErrCaptchaInvalid = errors.New("invalid captcha answer")
	// ErrOTPNotFound is an exported constant or variable used by the security core.
	ErrOTPNotFound = errors.New("otp record not found")
	// ErrOTPExpired is an exported constant or variable used by the security core.
	ErrOTPExpired = errors.New("otp expired")
	// ErrOTPExhausted is an exported constant or variable used by the security core.
	ErrOTPExhausted = errors.New("otp attempts exceeded")
	// ErrOTPAlreadyUsed is an exported constant or variable used by the security core.
	ErrOTPAlreadyUsed = errors.New("otp already used")
	// ErrOTPInvalid is an exported constant or variable used by the security core.
	ErrOTPInvalid = errors.New("invalid otp code")
	// ErrPasswordPolicy is an exported constant or variable used by the security core.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse is an exported constant or variable used by the security core.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrStoreUnavailable is an exported constant or variable used by the security core.
	ErrStoreUnavailable = errors.New("security store unavailable")
)

// RateLimitError reports a rate-limit denial together with retry guidance.
// It unwraps to [ErrRateLimited].
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many requests, retry after %ds", int(e.RetryAfter.Seconds()))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// AccountLockedError reports an account-lock denial together with the
// remaining lock duration. It unwraps to [ErrAccountLocked].
type AccountLockedError struct {
	Remaining time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, retry after %ds", int(e.Remaining.Seconds()))
}

func (e *AccountLockedError) Unwrap() error { return ErrAccountLocked }

// PasswordValidationError carries the full list of policy violations for a
// candidate password. The list is never truncated to a single reason.
// It unwraps to [ErrPasswordPolicy].
type PasswordValidationError struct {
	Reasons []string
}

func (e *PasswordValidationError) Error() string {
	return "password policy violation: " + joinReasons(e.Reasons)
}

func (e *PasswordValidationError) Unwrap() error { return ErrPasswordPolicy }

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += "; "
		}
		out += r
	}
	return out
}
