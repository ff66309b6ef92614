package authguard

import (
	"time"
)

// Config defines a public type used by authguard APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	RateLimit RateLimitConfig
	Lockout   LockoutConfig
	Captcha   CaptchaConfig
	OTP       OTPConfig
	Password  PasswordConfig
	JWT       JWTConfig
	Audit     AuditConfig
	Notify    NotifyConfig
	Metrics   MetricsConfig
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig tunes the sliding-window request counters. Every request
// reaching a protected operation counts toward its budget regardless of
// whether the operation ultimately succeeds.
type RateLimitConfig struct {
	Window             time.Duration
	RegisterLimit      int
	LoginLimit         int
	CaptchaLimit       int
	OTPVerifyLimit     int
	OTPResendLimit     int
	PasswordResetLimit int

	// RetryHint is surfaced on denial of non-locking actions, where no IP
	// lock supplies a remaining duration.
	RetryHint time.Duration
}

// LimitFor returns the configured budget for an action.
func (c RateLimitConfig) LimitFor(action Action) int {
	switch action {
	case ActionRegister:
		return c.RegisterLimit
	case ActionLogin:
		return c.LoginLimit
	case ActionCaptcha:
		return c.CaptchaLimit
	case ActionOTPVerify:
		return c.OTPVerifyLimit
	case ActionOTPResend:
		return c.OTPResendLimit
	case ActionPasswordReset:
		return c.PasswordResetLimit
	default:
		return 0
	}
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig defines a public type used by authguard APIs.
//
// LockoutConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LockoutConfig struct {
	// IPLockDuration applies when rate denial on register/login trips the
	// IP lock.
	IPLockDuration time.Duration

	// AccountLockThreshold failed credential checks trigger an account lock
	// of AccountLockDuration.
	AccountLockThreshold int
	AccountLockDuration  time.Duration
}

/*
====================================
CAPTCHA CONFIG
====================================
*/

// CaptchaConfig defines a public type used by authguard APIs.
//
// CaptchaConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CaptchaConfig struct {
	TTL         time.Duration
	MaxAttempts int
	TextLength  int
	DefaultKind CaptchaKind
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig defines a public type used by authguard APIs.
//
// OTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
	Digits      int
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig carries argon2id parameters for credential hashing and the
// minimum raw strength score accepted at registration and reset.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MinScore int
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by authguard APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

/*
====================================
AUDIT / NOTIFY CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// NotifyConfig controls the asynchronous OTP delivery dispatcher. Delivery is
// always fire-and-forget; BufferSize bounds in-flight sends.
type NotifyConfig struct {
	Enabled    bool
	BufferSize int
}

// MetricsConfig toggles counter collection.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the configuration the engine starts from. Hosts
// adjust fields on the returned value and pass it to [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		RateLimit: RateLimitConfig{
			Window:             time.Hour,
			RegisterLimit:      3,
			LoginLimit:         5,
			CaptchaLimit:       10,
			OTPVerifyLimit:     10,
			OTPResendLimit:     5,
			PasswordResetLimit: 5,
			RetryHint:          5 * time.Minute,
		},
		Lockout: LockoutConfig{
			IPLockDuration:       time.Hour,
			AccountLockThreshold: 5,
			AccountLockDuration:  30 * time.Minute,
		},
		Captcha: CaptchaConfig{
			TTL:         10 * time.Minute,
			MaxAttempts: 3,
			TextLength:  6,
			DefaultKind: CaptchaImage,
		},
		OTP: OTPConfig{
			TTL:         10 * time.Minute,
			MaxAttempts: 3,
			Digits:      6,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinScore:    4,
		},
		JWT: JWTConfig{
			Issuer:     "authguard",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Notify: NotifyConfig{
			Enabled:    true,
			BufferSize: 64,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.JWT.Secret != nil {
		out.JWT.Secret = append([]byte(nil), cfg.JWT.Secret...)
	}
	return out
}
