package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/cache"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/session"
	"github.com/spec-kit/account-service/internal/verification"
)

// fakeUserRepo is an in-memory stand-in for the Postgres repository. It
// mirrors the real one's error contract: pgx.ErrNoRows for absent rows,
// idempotent Delete.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = uuid.NewString()
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.update(id, func(u *domain.User) { u.PasswordHash = passwordHash })
}

func (r *fakeUserRepo) SetEmailVerified(_ context.Context, id string) error {
	return r.update(id, func(u *domain.User) {
		u.EmailVerified = true
		u.Status = domain.UserStatusActive
	})
}

func (r *fakeUserRepo) SetPhoneNumber(_ context.Context, id, phoneNumber string) error {
	return r.update(id, func(u *domain.User) {
		u.PhoneNumber = &phoneNumber
		u.PhoneNumberVerified = false
	})
}

func (r *fakeUserRepo) SetPhoneNumberVerified(_ context.Context, id string) error {
	return r.update(id, func(u *domain.User) { u.PhoneNumberVerified = true })
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) update(id string, mutate func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	mutate(user)
	return nil
}

type sentEmail struct {
	to      string
	subject string
	body    string
}

type sentSMS struct {
	to      string
	message string
}

// captureNotifier records outbound deliveries instead of sending them.
type captureNotifier struct {
	emails []sentEmail
	sms    []sentSMS
}

func (n *captureNotifier) SendEmail(_ context.Context, to, subject, body string) error {
	n.emails = append(n.emails, sentEmail{to: to, subject: subject, body: body})
	return nil
}

func (n *captureNotifier) SendSMS(_ context.Context, to, message string) error {
	n.sms = append(n.sms, sentSMS{to: to, message: message})
	return nil
}

// recordingDispatcher remembers published event types in order.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	types := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		types = append(types, e.Type)
	}
	return types
}

// harness wires both services against an in-memory repository and a miniredis
// backed store, the same shape main assembles for real.
type harness struct {
	auth       *AuthService
	accounts   *AccountService
	users      *fakeUserRepo
	sessions   *session.Registry
	notifier   *captureNotifier
	dispatcher *recordingDispatcher
	clients    []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := zap.NewNop()
	store := cache.NewRedisStore(rdb)
	sessions := session.NewRegistry(store, logger)
	tokens := auth.NewTokenManager("service-test-secret")
	users := newFakeUserRepo()
	notify := &captureNotifier{}
	dispatcher := &recordingDispatcher{}

	authCfg := config.AuthConfig{
		JWTSecret:             "service-test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            bcrypt.MinCost,
		Clients:               []string{"web", "mobile"},
	}
	notifyCfg := config.NotificationConfig{
		EmailFrom:    "noreply@example.com",
		ResetLinkURL: "http://localhost:3000",
	}
	engine := verification.NewEngine(store, tokens, sessions, logger, authCfg.Clients, config.VerificationConfig{
		PasswordResetTTLMinutes:     30,
		DeleteAccountTTLMinutes:     30,
		EmailVerificationTTLMinutes: 60,
		PhoneOTPTTLMinutes:          5,
		OTPLength:                   6,
	})

	return &harness{
		auth: NewAuthService(authCfg, AuthDependencies{
			UserRepo:   users,
			Tokens:     tokens,
			Sessions:   sessions,
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
		accounts: NewAccountService(authCfg, notifyCfg, AccountDependencies{
			UserRepo:   users,
			Engine:     engine,
			Notifier:   notify,
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
		users:      users,
		sessions:   sessions,
		notifier:   notify,
		dispatcher: dispatcher,
		clients:    authCfg.Clients,
	}
}

func (h *harness) register(t *testing.T, email, password string) *domain.User {
	t.Helper()
	user, err := h.auth.Register(context.Background(), "Test User", email, password)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return user
}

func (h *harness) login(t *testing.T, email, password, audience string) *domain.User {
	t.Helper()
	user, _, _, err := h.auth.Login(context.Background(), email, password, audience)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return user
}

// lastEmailToken pulls the secret out of the most recently delivered link.
func (h *harness) lastEmailToken(t *testing.T) string {
	t.Helper()
	if len(h.notifier.emails) == 0 {
		t.Fatal("no email delivered")
	}
	body := h.notifier.emails[len(h.notifier.emails)-1].body
	_, token, found := strings.Cut(body, "token=")
	if !found {
		t.Fatalf("no token in delivered link %q", body)
	}
	return token
}
