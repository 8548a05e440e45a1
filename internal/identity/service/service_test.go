package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"driverportal/internal/draft"
	"driverportal/internal/identity"
	"driverportal/internal/identity/oauth"
	"driverportal/internal/identity/store/reset"
	"driverportal/internal/identity/store/session"
	"driverportal/internal/identity/store/user"
)

type harness struct {
	service   *Service
	users     *countingUserStore
	sessions  *session.InMemory
	drafts    *draft.InMemoryStore
	profiles  *fakeProfiles
	referrals *fakeReferrals
	provider  *fakeProvider
	mailer    *fakeMailer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		users:     &countingUserStore{UserStore: user.NewInMemory()},
		sessions:  session.NewInMemory(),
		drafts:    draft.NewInMemoryStore(15 * time.Minute),
		profiles:  newFakeProfiles(),
		referrals: &fakeReferrals{},
		provider:  &fakeProvider{},
		mailer:    &fakeMailer{},
	}
	h.service = New(
		h.users,
		h.sessions,
		reset.NewInMemory(),
		h.drafts,
		h.profiles,
		h.referrals,
		h.provider,
		h.mailer,
		identity.NewTokenCodec("test-signing-key"),
		nil,
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config{BaseURL: "http://localhost:8080", BcryptCost: bcrypt.MinCost},
	)
	return h
}

// countingUserStore tracks how many times the store was touched, so tests can
// prove that local validation short-circuits before any persistence call.
type countingUserStore struct {
	UserStore
	calls int
}

func (s *countingUserStore) Create(ctx context.Context, u identity.User) error {
	s.calls++
	return s.UserStore.Create(ctx, u)
}

func (s *countingUserStore) FindByEmail(ctx context.Context, email string) (identity.User, error) {
	s.calls++
	return s.UserStore.FindByEmail(ctx, email)
}

type fakeProfiles struct {
	mu        sync.Mutex
	existing  map[string]bool
	created   map[string]draft.SignupForm
	createErr error
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{
		existing: make(map[string]bool),
		created:  make(map[string]draft.SignupForm),
	}
}

func (f *fakeProfiles) Exists(_ context.Context, driverID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing[driverID], nil
}

func (f *fakeProfiles) CreateFromSignupForm(_ context.Context, driverID string, form draft.SignupForm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.existing[driverID] = true
	f.created[driverID] = form
	return nil
}

type fakeProvider struct {
	exchangeErr error
	info        oauth.UserInfo
}

func (p *fakeProvider) LoginURL(state string) string {
	return "https://provider.example/auth?state=" + state
}

func (p *fakeProvider) Exchange(_ context.Context, _ string) (*oauth.UserInfo, error) {
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	info := p.info
	if info.Provider == "" {
		info = oauth.UserInfo{
			ProviderUserID: "provider-user-1",
			Email:          "driver@example.com",
			Name:           "Test Driver",
			Provider:       "google",
		}
	}
	return &info, nil
}

type fakeMailer struct {
	sent []string
	urls []string
	err  error
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, email, resetURL string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	m.urls = append(m.urls, resetURL)
	return nil
}

type fakeReferrals struct {
	mu    sync.Mutex
	codes []string
}

func (r *fakeReferrals) RecordReferral(_ context.Context, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, code)
}

func (r *fakeReferrals) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.codes...)
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account and session", func(t *testing.T) {
		h := newHarness(t)

		sess, err := h.service.SignUp(ctx, SignUpInput{
			Email:           "new@x.com",
			Password:        "abc123",
			ConfirmPassword: "abc123",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, sess.ID)
		assert.Equal(t, "new@x.com", sess.Email)

		u, err := h.users.FindByEmail(ctx, "new@x.com")
		require.NoError(t, err)
		assert.NotEqual(t, "abc123", u.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("abc123")))

		stored, err := h.sessions.FindByID(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, u.ID, stored.UserID)
	})

	t.Run("password mismatch never reaches the store", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.service.SignUp(ctx, SignUpInput{
			Email:           "new@x.com",
			Password:        "abc123",
			ConfirmPassword: "abc124",
		})
		require.ErrorIs(t, err, ErrPasswordMismatch)
		assert.Zero(t, h.users.calls)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.service.SignUp(ctx, SignUpInput{Email: "new@x.com"})
		require.ErrorIs(t, err, ErrFieldsRequired)
	})

	t.Run("invalid email rejected", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.service.SignUp(ctx, SignUpInput{
			Email:           "not-an-email",
			Password:        "abc123",
			ConfirmPassword: "abc123",
		})
		require.ErrorIs(t, err, ErrInvalidEmail)
		assert.Zero(t, h.users.calls)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		h := newHarness(t)
		in := SignUpInput{Email: "new@x.com", Password: "abc123", ConfirmPassword: "abc123"}

		_, err := h.service.SignUp(ctx, in)
		require.NoError(t, err)

		_, err = h.service.SignUp(ctx, in)
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("credits the referral code", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.service.SignUp(ctx, SignUpInput{
			Email:           "new@x.com",
			Password:        "abc123",
			ConfirmPassword: "abc123",
			ReferralCode:    "VAAM-ABC123",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"VAAM-ABC123"}, h.referrals.recorded())
	})

	t.Run("no referral code records nothing", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.service.SignUp(ctx, SignUpInput{
			Email:           "new@x.com",
			Password:        "abc123",
			ConfirmPassword: "abc123",
		})
		require.NoError(t, err)
		assert.Empty(t, h.referrals.recorded())
	})
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()

	signUp := func(t *testing.T, h *harness) identity.Session {
		t.Helper()
		sess, err := h.service.SignUp(ctx, SignUpInput{
			Email:           "driver@example.com",
			Password:        "abc123",
			ConfirmPassword: "abc123",
		})
		require.NoError(t, err)
		return sess
	}

	t.Run("valid credentials", func(t *testing.T) {
		h := newHarness(t)
		signUp(t, h)

		sess, err := h.service.SignIn(ctx, "driver@example.com", "abc123")
		require.NoError(t, err)
		assert.Equal(t, "driver@example.com", sess.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		h := newHarness(t)
		signUp(t, h)

		_, err := h.service.SignIn(ctx, "driver@example.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.service.SignIn(ctx, "nobody@example.com", "abc123")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("federated account has no password", func(t *testing.T) {
		h := newHarness(t)
		err := h.users.CreateWithIdentity(ctx,
			identity.User{ID: "u1", Email: "fed@example.com"},
			identity.Identity{ID: "i1", UserID: "u1", Provider: "google", ProviderUserID: "g1"},
		)
		require.NoError(t, err)

		_, err = h.service.SignIn(ctx, "fed@example.com", "anything")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("token round trip", func(t *testing.T) {
		h := newHarness(t)
		sess, err := h.service.SignUp(ctx, SignUpInput{
			Email:           "driver@example.com",
			Password:        "abc123",
			ConfirmPassword: "abc123",
		})
		require.NoError(t, err)

		token, err := h.service.IssueToken(sess)
		require.NoError(t, err)

		resolved, err := h.service.ResolveSession(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, resolved.ID)
		assert.Equal(t, sess.UserID, resolved.UserID)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.service.ResolveSession(ctx, "not-a-token")
		require.Error(t, err)
	})

	t.Run("sign out revokes immediately", func(t *testing.T) {
		h := newHarness(t)
		sess, err := h.service.SignUp(ctx, SignUpInput{
			Email:           "driver@example.com",
			Password:        "abc123",
			ConfirmPassword: "abc123",
		})
		require.NoError(t, err)
		token, err := h.service.IssueToken(sess)
		require.NoError(t, err)

		require.NoError(t, h.service.SignOut(ctx, sess.ID))

		_, err = h.service.ResolveSession(ctx, token)
		require.Error(t, err)
	})

	t.Run("expired session rejected", func(t *testing.T) {
		h := newHarness(t)
		sess, err := h.service.SignUp(ctx, SignUpInput{
			Email:           "driver@example.com",
			Password:        "abc123",
			ConfirmPassword: "abc123",
		})
		require.NoError(t, err)
		token, err := h.service.IssueToken(sess)
		require.NoError(t, err)

		h.service.WithClock(func() time.Time { return time.Now().Add(25 * time.Hour) })

		_, err = h.service.ResolveSession(ctx, token)
		require.Error(t, err)
	})
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email succeeds silently", func(t *testing.T) {
		h := newHarness(t)

		require.NoError(t, h.service.RequestPasswordReset(ctx, "nobody@example.com"))
		assert.Empty(t, h.mailer.sent)
	})

	t.Run("empty email rejected", func(t *testing.T) {
		h := newHarness(t)

		require.ErrorIs(t, h.service.RequestPasswordReset(ctx, ""), ErrEmailRequired)
	})

	t.Run("full reset flow", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.service.SignUp(ctx, SignUpInput{
			Email:           "driver@example.com",
			Password:        "abc123",
			ConfirmPassword: "abc123",
		})
		require.NoError(t, err)

		require.NoError(t, h.service.RequestPasswordReset(ctx, "driver@example.com"))
		require.Len(t, h.mailer.urls, 1)
		assert.Contains(t, h.mailer.urls[0], "http://localhost:8080/reset-password?token=")

		token := h.mailer.urls[0][len("http://localhost:8080/reset-password?token="):]
		require.NoError(t, h.service.CompletePasswordReset(ctx, token, "newpass", "newpass"))

		_, err = h.service.SignIn(ctx, "driver@example.com", "abc123")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = h.service.SignIn(ctx, "driver@example.com", "newpass")
		require.NoError(t, err)

		// One-time token.
		err = h.service.CompletePasswordReset(ctx, token, "again", "again")
		require.ErrorIs(t, err, ErrResetInvalid)
	})

	t.Run("mismatched confirmation rejected", func(t *testing.T) {
		h := newHarness(t)

		err := h.service.CompletePasswordReset(ctx, "some-token", "one", "two")
		require.ErrorIs(t, err, ErrPasswordMismatch)
	})

	t.Run("unknown token rejected", func(t *testing.T) {
		h := newHarness(t)

		err := h.service.CompletePasswordReset(ctx, "bogus", "newpass", "newpass")
		require.ErrorIs(t, err, ErrResetInvalid)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the hash", func(t *testing.T) {
		h := newHarness(t)
		session, err := h.service.SignUp(ctx, SignUpInput{
			Email:           "driver@example.com",
			Password:        "abc123",
			ConfirmPassword: "abc123",
		})
		require.NoError(t, err)

		require.NoError(t, h.service.ChangePassword(ctx, session.UserID, "newpass", "newpass"))

		_, err = h.service.SignIn(ctx, "driver@example.com", "abc123")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = h.service.SignIn(ctx, "driver@example.com", "newpass")
		require.NoError(t, err)
	})

	t.Run("mismatch rejected", func(t *testing.T) {
		h := newHarness(t)

		require.ErrorIs(t, h.service.ChangePassword(ctx, "u1", "one", "two"), ErrPasswordMismatch)
	})

	t.Run("empty fields rejected", func(t *testing.T) {
		h := newHarness(t)

		require.ErrorIs(t, h.service.ChangePassword(ctx, "u1", "", ""), ErrFieldsRequired)
	})
}
