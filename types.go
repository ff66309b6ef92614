package authguard

import (
	"context"
	"time"
)

// Action identifies a protected operation category for rate accounting.
//
//	Docs: docs/rate-limiting.md
type Action uint8

const (
	// ActionRegister is an exported constant or variable used by the security core.
	ActionRegister Action = iota
	// ActionLogin is an exported constant or variable used by the security core.
	ActionLogin
	// ActionCaptcha is an exported constant or variable used by the security core.
	ActionCaptcha
	// ActionOTPVerify is an exported constant or variable used by the security core.
	ActionOTPVerify
	// ActionOTPResend is an exported constant or variable used by the security core.
	ActionOTPResend
	// ActionPasswordReset is an exported constant or variable used by the security core.
	ActionPasswordReset
)

// String describes the string operation and its observable behavior.
func (a Action) String() string {
	switch a {
	case ActionRegister:
		return "register"
	case ActionLogin:
		return "login"
	case ActionCaptcha:
		return "captcha"
	case ActionOTPVerify:
		return "otp_verify"
	case ActionOTPResend:
		return "otp_resend"
	case ActionPasswordReset:
		return "password_reset"
	default:
		return "unknown"
	}
}

// OTPPurpose scopes a one-time code to the flow it belongs to. A new issue for
// a (user, purpose) pair supersedes every prior unused code for that pair.
type OTPPurpose uint8

const (
	// PurposeEmailVerify is an exported constant or variable used by the security core.
	PurposeEmailVerify OTPPurpose = iota
	// PurposePhoneVerify is an exported constant or variable used by the security core.
	PurposePhoneVerify
	// PurposeLogin is an exported constant or variable used by the security core.
	PurposeLogin
	// PurposePasswordReset is an exported constant or variable used by the security core.
	PurposePasswordReset
)

// String describes the string operation and its observable behavior.
func (p OTPPurpose) String() string {
	switch p {
	case PurposeEmailVerify:
		return "email_verify"
	case PurposePhoneVerify:
		return "phone_verify"
	case PurposeLogin:
		return "login"
	case PurposePasswordReset:
		return "password_reset"
	default:
		return "unknown"
	}
}

// CaptchaKind selects the challenge family for [Engine.IssueCaptcha].
type CaptchaKind uint8

const (
	// CaptchaImage is an exported constant or variable used by the security core.
	CaptchaImage CaptchaKind = iota
	// CaptchaMath is an exported constant or variable used by the security core.
	CaptchaMath
	// CaptchaText is an exported constant or variable used by the security core.
	CaptchaText
)

// String describes the string operation and its observable behavior.
func (k CaptchaKind) String() string {
	switch k {
	case CaptchaImage:
		return "image"
	case CaptchaMath:
		return "math"
	case CaptchaText:
		return "text"
	default:
		return "unknown"
	}
}

// Captcha is the caller-visible half of an issued challenge. The expected
// answer never leaves the engine.
type Captcha struct {
	ID     string
	Kind   CaptchaKind
	Prompt string // math question; empty for image/text kinds
	Image  string // base64 PNG for image/text kinds; empty for math
}

// UserRecord is the account view required by the engine. It carries the
// credential hash and the account-lock state; everything else about the user
// stays with the host application.
type UserRecord struct {
	UserID        string
	Username      string
	Email         string
	Phone         string
	PasswordHash  string
	EmailVerified bool

	// Account-lock state, owned by the user entity but mutated only through
	// engine operations.
	FailedLoginAttempts int
	LockedUntil         time.Time // zero = unlocked
}

// CreateUserInput is the payload passed to [UserProvider.CreateUser] during
// registration. PasswordHash is already argon2id-encoded.
type CreateUserInput struct {
	Username     string
	Email        string
	Phone        string
	PasswordHash string
}

// UserProvider is the contract that integrates authguard with the host's user
// database. Implementations must return [ErrUserNotFound] for unknown lookups
// and [ErrAccountExists] for duplicate creation.
//
//	Docs: docs/engine.md
type UserProvider interface {
	GetUserByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
	UpdateLockState(ctx context.Context, userID string, failedAttempts int, lockedUntil time.Time) error
	MarkEmailVerified(ctx context.Context, userID string) error
}

// Notifier delivers one-time codes over the host's transport (email, SMS).
// Calls are dispatched off the request path and are best-effort: a returned
// error is audited and swallowed, never propagated to the issuing operation.
type Notifier interface {
	SendOTP(ctx context.Context, destination, code string, purpose OTPPurpose) error
}

// Renderer turns a challenge text into a caller-visible representation,
// typically a base64-encoded distorted PNG. Rendering is peripheral: only the
// plaintext answer participates in verification.
type Renderer interface {
	Render(text string) (string, error)
}

// RandomSource supplies uniform integers for code and challenge generation.
// The default draws from crypto/rand; tests may substitute a deterministic
// source through [Builder.WithRandom].
type RandomSource interface {
	// Intn returns a uniform integer in [0, n). n must be > 0.
	Intn(n int) (int, error)
}

// RegisterInput is the request payload for [Engine.Register].
type RegisterInput struct {
	Username      string
	Email         string
	Phone         string
	Password      string
	CaptchaID     string
	CaptchaAnswer string
	IP            string
}

// RegisterResult is returned by [Engine.Register].
type RegisterResult struct {
	UserID               string
	VerificationRequired bool
}

// LoginInput is the request payload for [Engine.Login]. Identifier may be a
// username or an email address.
type LoginInput struct {
	Identifier string
	Password   string
	IP         string
}

// LoginResult is returned by [Engine.Login]. Credential success never yields
// tokens directly; the login OTP must be verified first.
type LoginResult struct {
	UserID      string
	OTPRequired bool
}
