package authguard

import (
	"context"
	"errors"

	"github.com/verisec/authguard/internal/limiters"
	"github.com/verisec/authguard/jwt"
)

// Login runs the credential half of the login flow: admission gate (login
// denial trips the IP lock), account-lock check, credential verification.
// A failed check feeds the account-lock counter; a successful one clears it
// and issues a login OTP. Tokens are only handed out by [Engine.VerifyLoginOTP].
func (e *Engine) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if err := e.gate(ctx, input.IP, ActionLogin); err != nil {
		return nil, err
	}

	user, err := e.users.GetUserByIdentifier(ctx, input.Identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Unknown identifiers do not reveal account existence and do
			// not feed any account's lock counter.
			e.metrics.inc(MetricLoginFailure)
			e.emit(ctx, AuditEvent{
				EventType: EventLoginFailure,
				IP:        input.IP,
				Error:     "user not found",
			})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	now := e.now()
	if limiters.AccountLocked(user.LockedUntil, now) {
		e.metrics.inc(MetricAccountLocked)
		e.emit(ctx, AuditEvent{
			EventType: EventLoginFailure,
			UserID:    user.UserID,
			IP:        input.IP,
			Error:     "account locked",
		})
		return nil, &AccountLockedError{Remaining: limiters.AccountRemaining(user.LockedUntil, now)}
	}

	ok, err := e.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		failed, lockedUntil := e.accountLockPolicy().RecordFailure(user.FailedLoginAttempts, user.LockedUntil, now)
		if err := e.users.UpdateLockState(ctx, user.UserID, failed, lockedUntil); err != nil {
			return nil, err
		}

		e.metrics.inc(MetricLoginFailure)
		e.emit(ctx, AuditEvent{
			EventType: EventLoginFailure,
			UserID:    user.UserID,
			IP:        input.IP,
			Error:     "invalid password",
		})

		if limiters.AccountLocked(lockedUntil, now) {
			e.metrics.inc(MetricAccountLocked)
			e.emit(ctx, AuditEvent{
				EventType: EventAccountLocked,
				UserID:    user.UserID,
				IP:        input.IP,
			})
		}

		return nil, ErrInvalidCredentials
	}

	// Successful authentication clears the failure counter and any lock.
	failed, lockedUntil := limiters.ResetAccount()
	if err := e.users.UpdateLockState(ctx, user.UserID, failed, lockedUntil); err != nil {
		return nil, err
	}

	if err := e.issueOTP(ctx, user, PurposeLogin); err != nil {
		return nil, err
	}

	e.emit(ctx, AuditEvent{
		EventType: EventLoginSuccess,
		UserID:    user.UserID,
		IP:        input.IP,
		Success:   true,
		Metadata:  map[string]string{"stage": "credentials"},
	})

	return &LoginResult{
		UserID:      user.UserID,
		OTPRequired: true,
	}, nil
}

// VerifyLoginOTP consumes the login code and, on success, issues the JWT
// token pair. Requires a JWT secret in the configuration.
func (e *Engine) VerifyLoginOTP(ctx context.Context, userID, code string) (*jwt.TokenPair, error) {
	if e.signer == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.VerifyOTP(ctx, userID, PurposeLogin, code); err != nil {
		return nil, err
	}

	pair, err := e.signer.IssuePair(userID)
	if err != nil {
		return nil, err
	}

	e.metrics.inc(MetricLoginSuccess)
	e.emit(ctx, AuditEvent{
		EventType: EventLoginSuccess,
		UserID:    userID,
		Success:   true,
		Metadata:  map[string]string{"stage": "otp"},
	})

	return &pair, nil
}
