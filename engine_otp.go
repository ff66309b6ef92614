package authguard

import (
	"context"
	"errors"

	"github.com/verisec/authguard/internal"
)

// issueOTP creates a fresh code for the (user, purpose) pair, superseding any
// prior unused code, and hands it to the background delivery dispatcher. The
// record commits before dispatch is attempted; delivery failure never
// propagates.
func (e *Engine) issueOTP(ctx context.Context, user UserRecord, purpose OTPPurpose) error {
	code, err := internal.NewOTPCode(e.rand, e.config.OTP.Digits)
	if err != nil {
		return err
	}

	if _, err := e.otpStore.Issue(ctx, user.UserID, purpose.String(), code); err != nil {
		return mapOTPErr(err)
	}

	e.metrics.inc(MetricOTPIssued)
	e.dispatchOTP(user, code, purpose)
	return nil
}

// VerifyOTP checks a submitted code for the (user, purpose) pair. The failure
// kinds are distinct, stable error values; an expired-and-exhausted record
// always reports [ErrOTPExpired]. A verified code is consumed.
func (e *Engine) VerifyOTP(ctx context.Context, userID string, purpose OTPPurpose, code string) error {
	err := mapOTPErr(e.otpStore.Verify(ctx, userID, purpose.String(), code))
	if err != nil {
		e.metrics.inc(MetricOTPFailed)
		e.emit(ctx, AuditEvent{
			EventType: EventOTPFailed,
			UserID:    userID,
			Error:     err.Error(),
			Metadata:  map[string]string{"purpose": purpose.String()},
		})
		return err
	}

	e.metrics.inc(MetricOTPVerified)
	e.emit(ctx, AuditEvent{
		EventType: EventOTPVerified,
		UserID:    userID,
		Success:   true,
		Metadata:  map[string]string{"purpose": purpose.String()},
	})
	return nil
}

// VerifyEmail consumes an email-verification code and flips the account's
// verified flag through the provider.
func (e *Engine) VerifyEmail(ctx context.Context, userID, code string) error {
	if err := e.VerifyOTP(ctx, userID, PurposeEmailVerify, code); err != nil {
		return err
	}
	return e.users.MarkEmailVerified(ctx, userID)
}

// ResendOTP issues and dispatches a fresh code for the (user, purpose) pair.
// The previous code is superseded even if it was never attempted; this is the
// recovery path when delivery silently failed. ip, when non-empty, is charged
// against the resend rate budget.
func (e *Engine) ResendOTP(ctx context.Context, userID string, purpose OTPPurpose, ip string) error {
	if err := e.gate(ctx, ip, ActionOTPResend); err != nil {
		return err
	}

	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	return e.issueOTP(ctx, user, purpose)
}
