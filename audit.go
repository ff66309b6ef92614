package authguard

import (
	"io"

	"github.com/verisec/authguard/internal/audit"
)

// AuditEvent is the security-event model emitted by the engine.
type AuditEvent = audit.Event

// AuditSink receives emitted security events. Implementations must be safe
// for concurrent use; the engine emits from a single dispatcher goroutine.
type AuditSink = audit.Sink

// NewJSONAuditSink writes one JSON event per line to w.
func NewJSONAuditSink(w io.Writer) AuditSink {
	return audit.NewJSONWriterSink(w)
}

// Audit event names emitted by the engine.
const (
	// EventRegister is an exported constant or variable used by the security core.
	EventRegister = "register"
	// EventLoginSuccess is an exported constant or variable used by the security core.
	EventLoginSuccess = "login_success"
	// EventLoginFailure is an exported constant or variable used by the security core.
	EventLoginFailure = "login_failure"
	// EventRateLimited is an exported constant or variable used by the security core.
	EventRateLimited = "rate_limited"
	// EventIPLocked is an exported constant or variable used by the security core.
	EventIPLocked = "ip_locked"
	// EventAccountLocked is an exported constant or variable used by the security core.
	EventAccountLocked = "account_locked"
	// EventCaptchaFailed is an exported constant or variable used by the security core.
	EventCaptchaFailed = "captcha_failed"
	// EventOTPFailed is an exported constant or variable used by the security core.
	EventOTPFailed = "otp_failed"
	// EventOTPVerified is an exported constant or variable used by the security core.
	EventOTPVerified = "otp_verified"
	// EventPasswordChange is an exported constant or variable used by the security core.
	EventPasswordChange = "password_change"
	// EventPasswordReset is an exported constant or variable used by the security core.
	EventPasswordReset = "password_reset"
	// EventNotifyFailed is an exported constant or variable used by the security core.
	EventNotifyFailed = "notify_failed"
)
