package authguard

import (
	"context"
	"errors"

	"github.com/verisec/authguard/internal/limiters"
)

// RequestPasswordReset issues a reset code for the account behind the email
// and dispatches it best-effort. Unknown emails return [ErrUserNotFound];
// whether to surface that distinction to end users is the host's call.
// ip, when non-empty, is charged against the reset rate budget.
func (e *Engine) RequestPasswordReset(ctx context.Context, email, ip string) error {
	if err := e.gate(ctx, ip, ActionPasswordReset); err != nil {
		return err
	}

	user, err := e.users.GetUserByIdentifier(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := e.issueOTP(ctx, user, PurposePasswordReset); err != nil {
		return err
	}

	e.emit(ctx, AuditEvent{
		EventType: EventPasswordReset,
		UserID:    user.UserID,
		IP:        ip,
		Metadata:  map[string]string{"stage": "requested"},
	})
	return nil
}

// ConfirmPasswordReset consumes the reset code, validates the replacement
// password against the policy, stores the new hash, and clears the account's
// lock state. A completed reset proves control of the mailbox, so stale
// failure counters should not keep the account locked.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, userID, code, newPassword string) error {
	if err := e.VerifyOTP(ctx, userID, PurposePasswordReset, code); err != nil {
		return err
	}

	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if result := e.policy.Validate(newPassword, user.Username, user.Email); !result.Valid {
		e.metrics.inc(MetricPasswordRejected)
		return &PasswordValidationError{Reasons: result.Errors}
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := e.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	failed, lockedUntil := limiters.ResetAccount()
	if err := e.users.UpdateLockState(ctx, userID, failed, lockedUntil); err != nil {
		return err
	}

	e.emit(ctx, AuditEvent{
		EventType: EventPasswordReset,
		UserID:    userID,
		Success:   true,
		Metadata:  map[string]string{"stage": "confirmed"},
	})
	return nil
}

// ChangePassword verifies the current password and replaces it. The new
// password passes the same policy as registration and must differ from the
// old one.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := e.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}

	if oldPassword == newPassword {
		return ErrPasswordReuse
	}

	if result := e.policy.Validate(newPassword, user.Username, user.Email); !result.Valid {
		e.metrics.inc(MetricPasswordRejected)
		return &PasswordValidationError{Reasons: result.Errors}
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := e.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	e.emit(ctx, AuditEvent{
		EventType: EventPasswordChange,
		UserID:    userID,
		Success:   true,
	})
	return nil
}
