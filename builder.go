package authguard

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/verisec/authguard/internal"
	"github.com/verisec/authguard/internal/audit"
	"github.com/verisec/authguard/internal/captcha"
	"github.com/verisec/authguard/internal/limiters"
	"github.com/verisec/authguard/internal/notify"
	"github.com/verisec/authguard/internal/rate"
	"github.com/verisec/authguard/internal/stores"
	"github.com/verisec/authguard/jwt"
	"github.com/verisec/authguard/password"
)

// Builder defines a public type used by authguard APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users     UserProvider
	notifier  Notifier
	renderer  Renderer
	rand      RandomSource
	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New returns a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing all shared state.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the host's user-store integration.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.users = up
	return b
}

// WithNotifier sets the code-delivery transport. Without one, codes are
// issued but never dispatched.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithRenderer sets the CAPTCHA image renderer. Without one, a minimal
// built-in renderer is used.
func (b *Builder) WithRenderer(r Renderer) *Builder {
	b.renderer = r
	return b
}

// WithAuditSink sets the destination for security events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock replaces the wall clock, for deterministic expiry in tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithRandom replaces the randomness source used for codes and challenge
// text, for deterministic generation in tests.
func (b *Builder) WithRandom(src RandomSource) *Builder {
	b.rand = src
	return b
}

// WithMetricsEnabled toggles counter collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build wires the engine. It validates required collaborators and
// configuration but performs no I/O.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.users == nil {
		return nil, errors.New("user provider is required")
	}
	if cfg.RateLimit.Window <= 0 {
		return nil, errors.New("rate limit window must be positive")
	}
	if cfg.Captcha.MaxAttempts <= 0 || cfg.OTP.MaxAttempts <= 0 {
		return nil, errors.New("attempt budgets must be positive")
	}
	if cfg.Lockout.AccountLockThreshold <= 0 {
		return nil, errors.New("account lock threshold must be positive")
	}

	hasher, err := password.NewHasher(password.HashConfig{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	var signer *jwt.Signer
	if len(cfg.JWT.Secret) > 0 {
		signer, err = jwt.NewSigner(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL, clock)
		if err != nil {
			return nil, err
		}
	}

	randSrc := b.rand
	if randSrc == nil {
		randSrc = internal.CryptoSource{}
	}

	renderer := b.renderer
	if renderer == nil {
		renderer = captcha.PlainRenderer{}
	}

	engine := &Engine{
		config:       cfg,
		users:        b.users,
		renderer:     renderer,
		rand:         randSrc,
		hasher:       hasher,
		policy:       password.Policy{MinScore: cfg.Password.MinScore},
		signer:       signer,
		rateLimiter:  rate.New(b.redis, clock),
		ipLocks:      limiters.NewIPLocker(b.redis, clock),
		captchaStore: stores.NewCaptchaStore(b.redis, clock, cfg.Captcha.TTL, cfg.Captcha.MaxAttempts),
		otpStore:     stores.NewOTPStore(b.redis, clock, cfg.OTP.TTL, cfg.OTP.MaxAttempts),
		captchaGen:   captcha.New(randSrc, cfg.Captcha.TextLength),
		metrics:      newMetrics(cfg.Metrics.Enabled),
		now:          clock,
	}

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled && b.auditSink != nil,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	if b.notifier != nil {
		notifier := b.notifier
		engine.notify = notify.NewDispatcher(notify.Config{
			Enabled:    cfg.Notify.Enabled,
			BufferSize: cfg.Notify.BufferSize,
		}, notify.SenderFunc(func(ctx context.Context, msg notify.Message) error {
			return notifier.SendOTP(ctx, msg.Destination, msg.Code, purposeFromString(msg.Purpose))
		}), func(msg notify.Message, sendErr error) {
			engine.metrics.inc(MetricNotifyFailed)
			engine.emit(context.Background(), AuditEvent{
				EventType: EventNotifyFailed,
				UserID:    msg.UserID,
				Error:     sendErr.Error(),
				Metadata:  map[string]string{"purpose": msg.Purpose},
			})
		})
	}

	b.built = true
	return engine, nil
}

func purposeFromString(s string) OTPPurpose {
	switch s {
	case "phone_verify":
		return PurposePhoneVerify
	case "login":
		return PurposeLogin
	case "password_reset":
		return PurposePasswordReset
	default:
		return PurposeEmailVerify
	}
}
