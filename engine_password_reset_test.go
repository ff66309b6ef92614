package authguard

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPasswordResetFlow(t *testing.T) {
	f := newTestEngine(t, testConfig())
	ctx := context.Background()
	user := f.seedUser(t, "alice", "alice@example.com", "Old-Passw0rd-&1")

	// Seed a locked account: a completed reset must clear it.
	if err := f.provider.UpdateLockState(ctx, user.UserID, 5, f.clock.Now().Add(30*time.Minute)); err != nil {
		t.Fatalf("seed lock state failed: %v", err)
	}

	if err := f.engine.RequestPasswordReset(ctx, "alice@example.com", "203.0.113.7"); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}

	msg := waitOTP(t, f.notifier)
	if msg.Purpose != PurposePasswordReset {
		t.Fatalf("expected password_reset purpose, got %v", msg.Purpose)
	}
	if msg.Destination != "alice@example.com" {
		t.Fatalf("expected code sent to email, got %q", msg.Destination)
	}

	oldHash := f.provider.get(user.UserID).PasswordHash

	if err := f.engine.ConfirmPasswordReset(ctx, user.UserID, msg.Code, "New-Passw0rd-&2"); err != nil {
		t.Fatalf("ConfirmPasswordReset failed: %v", err)
	}

	updated := f.provider.get(user.UserID)
	if updated.PasswordHash == oldHash {
		t.Fatal("expected password hash to change")
	}
	if updated.FailedLoginAttempts != 0 || !updated.LockedUntil.IsZero() {
		t.Fatal("expected reset to clear the account-lock state")
	}

	ok, err := f.engine.hasher.Verify("New-Passw0rd-&2", updated.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("new hash verify failed, ok=%v err=%v", ok, err)
	}

	// The reset code is consumed.
	if err := f.engine.ConfirmPasswordReset(ctx, user.UserID, msg.Code, "Another-Passw0rd-3!"); !errors.Is(err, ErrOTPAlreadyUsed) {
		t.Fatalf("expected ErrOTPAlreadyUsed on replay, got %v", err)
	}
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	f := newTestEngine(t, testConfig())

	err := f.engine.RequestPasswordReset(context.Background(), "ghost@example.com", "")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestConfirmPasswordResetRejectsWeakPassword(t *testing.T) {
	f := newTestEngine(t, testConfig())
	ctx := context.Background()
	user := f.seedUser(t, "bob", "bob@example.com", "Old-Passw0rd-&1")

	if err := f.engine.RequestPasswordReset(ctx, "bob@example.com", ""); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	msg := waitOTP(t, f.notifier)

	err := f.engine.ConfirmPasswordReset(ctx, user.UserID, msg.Code, "short")
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}

	// The hash is untouched, but the code was consumed by the verify step:
	// the caller needs a fresh one.
	if f.provider.updatePasswordCalls != 0 {
		t.Fatal("hash must not change on policy failure")
	}
}

func TestConfirmPasswordResetWrongCode(t *testing.T) {
	f := newTestEngine(t, testConfig())
	ctx := context.Background()
	user := f.seedUser(t, "carol", "carol@example.com", "Old-Passw0rd-&1")

	if err := f.engine.RequestPasswordReset(ctx, "carol@example.com", ""); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	waitOTP(t, f.notifier)

	err := f.engine.ConfirmPasswordReset(ctx, user.UserID, "999999", "New-Passw0rd-&2")
	if !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected ErrOTPInvalid, got %v", err)
	}
	if f.provider.updatePasswordCalls != 0 {
		t.Fatal("hash must not change on code failure")
	}
}

func TestChangePasswordSuccess(t *testing.T) {
	f := newTestEngine(t, testConfig())
	ctx := context.Background()
	user := f.seedUser(t, "dave", "dave@example.com", "Old-Passw0rd-&1")

	if err := f.engine.ChangePassword(ctx, user.UserID, "Old-Passw0rd-&1", "New-Passw0rd-&2"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	updated := f.provider.get(user.UserID)
	ok, err := f.engine.hasher.Verify("New-Passw0rd-&2", updated.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("new hash verify failed, ok=%v err=%v", ok, err)
	}
}

func TestChangePasswordWrongOldPassword(t *testing.T) {
	f := newTestEngine(t, testConfig())
	ctx := context.Background()
	user := f.seedUser(t, "erin", "erin@example.com", "Old-Passw0rd-&1")

	err := f.engine.ChangePassword(ctx, user.UserID, "not-the-old-one", "New-Passw0rd-&2")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if f.provider.updatePasswordCalls != 0 {
		t.Fatal("hash must not change on wrong old password")
	}
}

func TestChangePasswordRejectsReuse(t *testing.T) {
	f := newTestEngine(t, testConfig())
	ctx := context.Background()
	user := f.seedUser(t, "frank", "frank@example.com", "Old-Passw0rd-&1")

	err := f.engine.ChangePassword(ctx, user.UserID, "Old-Passw0rd-&1", "Old-Passw0rd-&1")
	if !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("expected ErrPasswordReuse, got %v", err)
	}
}

func TestChangePasswordRejectsWeakNewPassword(t *testing.T) {
	f := newTestEngine(t, testConfig())
	ctx := context.Background()
	user := f.seedUser(t, "grace", "grace@example.com", "Old-Passw0rd-&1")

	err := f.engine.ChangePassword(ctx, user.UserID, "Old-Passw0rd-&1", "short")
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
}

func TestRequestPasswordResetRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.PasswordResetLimit = 1

	f := newTestEngine(t, cfg)
	ctx := context.Background()
	f.seedUser(t, "heidi", "heidi@example.com", "Old-Passw0rd-&1")

	if err := f.engine.RequestPasswordReset(ctx, "heidi@example.com", "192.0.2.8"); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	waitOTP(t, f.notifier)

	err := f.engine.RequestPasswordReset(ctx, "heidi@example.com", "192.0.2.8")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}
