package stores

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

// testClock is a manually advanced clock shared across store tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCaptchaVerifyConsumesOnMatch(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewCaptchaStore(rdb, nil, 10*time.Minute, 3)

	if err := store.Save(ctx, "c1", 1, "42"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Verify(ctx, "c1", "42"); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	// One-time use.
	if err := store.Verify(ctx, "c1", "42"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on replay, got %v", err)
	}
}

func TestCaptchaVerifyTrimsAndIgnoresCase(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewCaptchaStore(rdb, nil, 10*time.Minute, 3)

	if err := store.Save(ctx, "c1", 2, "AbC123"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Verify(ctx, "c1", "  abc123  "); err != nil {
		t.Fatalf("expected trimmed, case-insensitive match, got %v", err)
	}
}

func TestCaptchaVerifyMismatchCostsAttempt(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewCaptchaStore(rdb, nil, 10*time.Minute, 2)

	if err := store.Save(ctx, "c1", 1, "42"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := store.Verify(ctx, "c1", "nope"); !errors.Is(err, ErrMismatch) {
			t.Fatalf("attempt %d: expected ErrMismatch, got %v", i+1, err)
		}
	}

	// Budget spent: the correct answer no longer verifies, and the record
	// is not mutated further.
	if err := store.Verify(ctx, "c1", "42"); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if err := store.Verify(ctx, "c1", "42"); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted to persist, got %v", err)
	}
}

func TestCaptchaVerifyExpiryWinsOverBudget(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	clock := newTestClock()
	store := NewCaptchaStore(rdb, clock.Now, 10*time.Minute, 1)

	if err := store.Save(ctx, "c1", 1, "42"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Verify(ctx, "c1", "nope"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}

	clock.Advance(10*time.Minute + time.Second)

	if err := store.Verify(ctx, "c1", "42"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	// The expired record is deleted on observation.
	if err := store.Verify(ctx, "c1", "42"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry cleanup, got %v", err)
	}
}

func TestCaptchaVerifyUnknownID(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	store := NewCaptchaStore(rdb, nil, 10*time.Minute, 3)

	if err := store.Verify(context.Background(), "ghost", "42"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCaptchaVerifyBackendDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	mr.Close()

	store := NewCaptchaStore(rdb, nil, 10*time.Minute, 3)

	if err := store.Verify(context.Background(), "c1", "42"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCaptchaRecordRoundTrip(t *testing.T) {
	record := &CaptchaRecord{
		Kind:      2,
		Answer:    "XK29QF",
		CreatedAt: 1748779200000,
		Attempts:  2,
	}

	encoded, err := encodeCaptchaRecord(record)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := decodeCaptchaRecord(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if *decoded != *record {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, record)
	}
}

func TestCaptchaRecordRejectsUnknownVersion(t *testing.T) {
	if _, err := decodeCaptchaRecord([]byte{99, 0, 0, 0}); err == nil {
		t.Fatal("expected version rejection")
	}
}
