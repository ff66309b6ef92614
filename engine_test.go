package authguard

import (
	"context"
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

// testClock is a manually advanced wall clock shared by the engine and the
// test body.
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

// scriptRand replays a fixed value sequence, reduced modulo the requested
// bound, so challenge and code generation is deterministic.
type scriptRand struct {
	vals []int
	i    int
}

func (s *scriptRand) Intn(n int) (int, error) {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v % n, nil
}

type sentOTP struct {
	Destination string
	Code        string
	Purpose     OTPPurpose
}

// captureNotifier records dispatched codes for assertions.
type captureNotifier struct {
	ch chan sentOTP
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{ch: make(chan sentOTP, 16)}
}

func (n *captureNotifier) SendOTP(_ context.Context, destination, code string, purpose OTPPurpose) error {
	n.ch <- sentOTP{Destination: destination, Code: code, Purpose: purpose}
	return nil
}

func waitOTP(t *testing.T, n *captureNotifier) sentOTP {
	t.Helper()

	select {
	case msg := <-n.ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatched code")
		return sentOTP{}
	}
}

type mockUserProvider struct {
	mu           sync.Mutex
	users        map[string]UserRecord
	byIdentifier map[string]string
	createErr    error
	updateErr    error

	createCalls         int
	updatePasswordCalls int
	updateLockCalls     int
	markVerifiedCalls   int
}

func newMockUserProvider() *mockUserProvider {
	return &mockUserProvider{
		users:        make(map[string]UserRecord),
		byIdentifier: make(map[string]string),
	}
}

func (m *mockUserProvider) put(u UserRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[u.UserID] = u
	if u.Username != "" {
		m.byIdentifier[u.Username] = u.UserID
	}
	if u.Email != "" {
		m.byIdentifier[u.Email] = u.UserID
	}
}

func (m *mockUserProvider) get(userID string) UserRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID]
}

func (m *mockUserProvider) GetUserByIdentifier(_ context.Context, identifier string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userID, ok := m.byIdentifier[identifier]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return m.users[userID], nil
}

func (m *mockUserProvider) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserProvider) CreateUser(_ context.Context, input CreateUserInput) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++

	if m.createErr != nil {
		return UserRecord{}, m.createErr
	}

	if _, exists := m.byIdentifier[input.Username]; exists {
		return UserRecord{}, ErrAccountExists
	}
	if _, exists := m.byIdentifier[input.Email]; exists {
		return UserRecord{}, ErrAccountExists
	}

	user := UserRecord{
		UserID:       "u" + input.Username,
		Username:     input.Username,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: input.PasswordHash,
	}
	m.users[user.UserID] = user
	m.byIdentifier[input.Username] = user.UserID
	m.byIdentifier[input.Email] = user.UserID
	return user, nil
}

func (m *mockUserProvider) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatePasswordCalls++

	if m.updateErr != nil {
		return m.updateErr
	}

	user, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.PasswordHash = newHash
	m.users[userID] = user
	return nil
}

func (m *mockUserProvider) UpdateLockState(_ context.Context, userID string, failedAttempts int, lockedUntil time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateLockCalls++

	user, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.FailedLoginAttempts = failedAttempts
	user.LockedUntil = lockedUntil
	m.users[userID] = user
	return nil
}

func (m *mockUserProvider) MarkEmailVerified(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markVerifiedCalls++

	user, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.EmailVerified = true
	m.users[userID] = user
	return nil
}

// testConfig trims hashing cost and TTLs so engine tests stay fast while
// keeping every guard active.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

type engineFixture struct {
	engine   *Engine
	provider *mockUserProvider
	notifier *captureNotifier
	clock    *testClock
	redis    *miniredis.Miniredis
}

func newTestEngine(t *testing.T, cfg Config) *engineFixture {
	t.Helper()

	mr, rdb := newTestRedis(t)
	t.Cleanup(mr.Close)

	clock := newTestClock()
	provider := newMockUserProvider()
	notifier := newCaptureNotifier()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(provider).
		WithNotifier(notifier).
		WithClock(clock.Now).
		WithRandom(&scriptRand{vals: []int{0, 4, 9, 2, 7, 5, 1, 8, 3, 6}}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &engineFixture{
		engine:   engine,
		provider: provider,
		notifier: notifier,
		clock:    clock,
		redis:    mr,
	}
}

// seedUser hashes the password with the engine's own hasher and installs the
// account in the mock provider.
func (f *engineFixture) seedUser(t *testing.T, username, email, password string) UserRecord {
	t.Helper()

	hash, err := f.engine.hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	user := UserRecord{
		UserID:       "u" + username,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	f.provider.put(user)
	return user
}
