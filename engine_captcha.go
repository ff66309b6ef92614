package authguard

import (
	"context"

	"github.com/google/uuid"
)

// IssueCaptcha creates a challenge of the given kind and returns the
// caller-visible half. The answer never leaves the engine. ip, when
// non-empty, is charged against the captcha rate budget; captcha denial does
// not trip the IP lock and surfaces the fixed retry hint instead.
func (e *Engine) IssueCaptcha(ctx context.Context, kind CaptchaKind, ip string) (*Captcha, error) {
	if err := e.gate(ctx, ip, ActionCaptcha); err != nil {
		return nil, err
	}

	// Unguessable challenge identity; sequential IDs would allow answer
	// farming across sessions.
	challengeID := uuid.NewString()

	var prompt, answer, image string
	switch kind {
	case CaptchaMath:
		p, a, err := e.captchaGen.Math()
		if err != nil {
			return nil, err
		}
		prompt, answer = p, a
	default:
		text, err := e.captchaGen.Text()
		if err != nil {
			return nil, err
		}
		answer = text

		rendered, err := e.renderer.Render(text)
		if err != nil {
			return nil, err
		}
		image = rendered
	}

	if err := e.captchaStore.Save(ctx, challengeID, uint8(kind), answer); err != nil {
		return nil, mapCaptchaErr(err)
	}

	e.metrics.inc(MetricCaptchaIssued)

	return &Captcha{
		ID:     challengeID,
		Kind:   kind,
		Prompt: prompt,
		Image:  image,
	}, nil
}

// VerifyCaptcha checks an answer against a previously issued challenge.
// Comparison trims whitespace and ignores case. A solved challenge is
// consumed and cannot be verified again; expiry always wins over the attempt
// budget. Each failure kind surfaces as its own error value.
func (e *Engine) VerifyCaptcha(ctx context.Context, challengeID, answer string) error {
	err := mapCaptchaErr(e.captchaStore.Verify(ctx, challengeID, answer))
	if err != nil {
		e.metrics.inc(MetricCaptchaFailed)
		e.emit(ctx, AuditEvent{
			EventType: EventCaptchaFailed,
			Error:     err.Error(),
			Metadata:  map[string]string{"challenge_id": challengeID},
		})
		return err
	}

	e.metrics.inc(MetricCaptchaSolved)
	return nil
}
