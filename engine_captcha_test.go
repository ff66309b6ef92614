package authguard

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIssueCaptchaMathDeterministic(t *testing.T) {
	f := newTestEngine(t, testConfig())
	ctx := context.Background()

	// Script: op=0 (addition), a=4%50+1=5, b=9%50+1=10.
	challenge, err := f.engine.IssueCaptcha(ctx, CaptchaMath, "")
	if err != nil {
		t.Fatalf("IssueCaptcha failed: %v", err)
	}

	if challenge.ID == "" {
		t.Fatal("expected non-empty challenge ID")
	}
	if challenge.Prompt != "What is 5 + 10?" {
		t.Fatalf("unexpected prompt: %q", challenge.Prompt)
	}
	if challenge.Image != "" {
		t.Fatal("math challenges must not carry an image")
	}

	if err := f.engine.VerifyCaptcha(ctx, challenge.ID, "15"); err != nil {
		t.Fatalf("VerifyCaptcha failed: %v", err)
	}
}

func TestIssueCaptchaImageRenders(t *testing.T) {
	f := newTestEngine(t, testConfig())

	challenge, err := f.engine.IssueCaptcha(context.Background(), CaptchaImage, "")
	if err != nil {
		t.Fatalf("IssueCaptcha failed: %v", err)
	}

	if challenge.Image == "" {
		t.Fatal("expected rendered image")
	}
	if challenge.Prompt != "" {
		t.Fatal("image challenges must not carry a prompt")
	}
}

func TestVerifyCaptchaTrimsAndIgnoresCase(t *testing.T) {
	f := newTestEngine(t, testConfig())
	ctx := context.Background()

	challenge, err := f.engine.IssueCaptcha(ctx, CaptchaText, "")
	if err != nil {
		t.Fatalf("IssueCaptcha failed: %v", err)
	}

	// Text answer from script vals: indices 0,4,9,2,7,5 of the alphabet
	// spell "AEKCHF".
	if err := f.engine.VerifyCaptcha(ctx, challenge.ID, "  aekchf  "); err != nil {
		t.Fatalf("expected trimmed, case-insensitive match, got %v", err)
	}
}

func TestVerifyCaptchaOneTimeUse(t *testing.T) {
	f := newTestEngine(t, testConfig())
	ctx := context.Background()

	challenge, err := f.engine.IssueCaptcha(ctx, CaptchaMath, "")
	if err != nil {
		t.Fatalf("IssueCaptcha failed: %v", err)
	}

	if err := f.engine.VerifyCaptcha(ctx, challenge.ID, "15"); err != nil {
		t.Fatalf("first verify failed: %v", err)
	}

	if err := f.engine.VerifyCaptcha(ctx, challenge.ID, "15"); !errors.Is(err, ErrCaptchaNotFound) {
		t.Fatalf("expected ErrCaptchaNotFound on replay, got %v", err)
	}
}

func TestVerifyCaptchaAttemptBudget(t *testing.T) {
	cfg := testConfig()
	cfg.Captcha.MaxAttempts = 2

	f := newTestEngine(t, cfg)
	ctx := context.Background()

	challenge, err := f.engine.IssueCaptcha(ctx, CaptchaMath, "")
	if err != nil {
		t.Fatalf("IssueCaptcha failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := f.engine.VerifyCaptcha(ctx, challenge.ID, "wrong"); !errors.Is(err, ErrCaptchaInvalid) {
			t.Fatalf("attempt %d: expected ErrCaptchaInvalid, got %v", i+1, err)
		}
	}

	// Budget spent: even the correct answer is refused now.
	if err := f.engine.VerifyCaptcha(ctx, challenge.ID, "15"); !errors.Is(err, ErrCaptchaExhausted) {
		t.Fatalf("expected ErrCaptchaExhausted, got %v", err)
	}
}

func TestVerifyCaptchaExpiryWinsOverBudget(t *testing.T) {
	cfg := testConfig()
	cfg.Captcha.MaxAttempts = 1

	f := newTestEngine(t, cfg)
	ctx := context.Background()

	challenge, err := f.engine.IssueCaptcha(ctx, CaptchaMath, "")
	if err != nil {
		t.Fatalf("IssueCaptcha failed: %v", err)
	}

	if err := f.engine.VerifyCaptcha(ctx, challenge.ID, "wrong"); !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("expected ErrCaptchaInvalid, got %v", err)
	}

	f.clock.Advance(cfg.Captcha.TTL + time.Second)

	if err := f.engine.VerifyCaptcha(ctx, challenge.ID, "15"); !errors.Is(err, ErrCaptchaExpired) {
		t.Fatalf("expected ErrCaptchaExpired, got %v", err)
	}
}

func TestVerifyCaptchaUnknownID(t *testing.T) {
	f := newTestEngine(t, testConfig())

	err := f.engine.VerifyCaptcha(context.Background(), "no-such-challenge", "42")
	if !errors.Is(err, ErrCaptchaNotFound) {
		t.Fatalf("expected ErrCaptchaNotFound, got %v", err)
	}
}

func TestIssueCaptchaRateLimitUsesRetryHint(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.CaptchaLimit = 2

	f := newTestEngine(t, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.engine.IssueCaptcha(ctx, CaptchaMath, "10.0.0.9"); err != nil {
			t.Fatalf("issue %d failed: %v", i+1, err)
		}
	}

	_, err := f.engine.IssueCaptcha(ctx, CaptchaMath, "10.0.0.9")
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rl.RetryAfter != cfg.RateLimit.RetryHint {
		t.Fatalf("expected retry hint %v, got %v", cfg.RateLimit.RetryHint, rl.RetryAfter)
	}

	// Captcha denial never trips the IP lock.
	locked, err := f.engine.IsIPLocked(ctx, "10.0.0.9")
	if err != nil {
		t.Fatalf("IsIPLocked failed: %v", err)
	}
	if locked {
		t.Fatal("captcha denial must not trip the IP lock")
	}

	if got := f.engine.Metrics().RateLimited; got != 1 {
		t.Fatalf("expected 1 rate-limited metric, got %d", got)
	}
}
