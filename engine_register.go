package authguard

import (
	"context"
)

// Register runs the registration flow: admission gate (register denial trips
// the IP lock), mandatory CAPTCHA, password policy, account creation, then an
// email-verification code. The account commits before delivery is attempted;
// a failed send leaves a registered-but-unverified account whose recovery
// path is [Engine.ResendOTP].
func (e *Engine) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	if err := e.gate(ctx, input.IP, ActionRegister); err != nil {
		return nil, err
	}

	if input.CaptchaID == "" || input.CaptchaAnswer == "" {
		return nil, ErrCaptchaRequired
	}
	if err := e.VerifyCaptcha(ctx, input.CaptchaID, input.CaptchaAnswer); err != nil {
		return nil, err
	}

	if result := e.policy.Validate(input.Password, input.Username, input.Email); !result.Valid {
		e.metrics.inc(MetricPasswordRejected)
		return nil, &PasswordValidationError{Reasons: result.Errors}
	}

	hash, err := e.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := e.users.CreateUser(ctx, CreateUserInput{
		Username:     input.Username,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: hash,
	})
	if err != nil {
		e.metrics.inc(MetricRegisterRejected)
		return nil, err
	}

	e.metrics.inc(MetricRegisterSuccess)
	e.emit(ctx, AuditEvent{
		EventType: EventRegister,
		UserID:    user.UserID,
		IP:        input.IP,
		Success:   true,
	})

	// Account is committed; verification-code issues from here are
	// recoverable via resend and must not unwind the registration.
	if err := e.issueOTP(ctx, user, PurposeEmailVerify); err != nil {
		e.emit(ctx, AuditEvent{
			EventType: EventNotifyFailed,
			UserID:    user.UserID,
			Error:     err.Error(),
			Metadata:  map[string]string{"purpose": PurposeEmailVerify.String()},
		})
	}

	return &RegisterResult{
		UserID:               user.UserID,
		VerificationRequired: true,
	}, nil
}
