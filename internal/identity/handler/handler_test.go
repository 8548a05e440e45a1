package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"driverportal/internal/draft"
	"driverportal/internal/identity"
	"driverportal/internal/identity/oauth"
	"driverportal/internal/identity/service"
	"driverportal/internal/identity/store/reset"
	"driverportal/internal/identity/store/session"
	"driverportal/internal/identity/store/user"
	"driverportal/pkg/testutil"
)

type stubProfiles struct {
	existing map[string]bool
}

func (s *stubProfiles) Exists(_ context.Context, driverID string) (bool, error) {
	return s.existing[driverID], nil
}

func (s *stubProfiles) CreateFromSignupForm(_ context.Context, driverID string, _ draft.SignupForm) error {
	s.existing[driverID] = true
	return nil
}

type stubProvider struct{}

func (stubProvider) LoginURL(state string) string {
	return "https://provider.example/auth?state=" + state
}

func (stubProvider) Exchange(_ context.Context, _ string) (*oauth.UserInfo, error) {
	return &oauth.UserInfo{
		ProviderUserID: "provider-user-1",
		Email:          "driver@example.com",
		Provider:       "google",
	}, nil
}

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(
		user.NewInMemory(),
		session.NewInMemory(),
		reset.NewInMemory(),
		draft.NewInMemoryStore(15*time.Minute),
		&stubProfiles{existing: make(map[string]bool)},
		nil,
		stubProvider{},
		identity.NewLogMailer(logger),
		identity.NewTokenCodec("test-signing-key"),
		nil,
		nil,
		logger,
		service.Config{BcryptCost: bcrypt.MinCost},
	)

	r := chi.NewRouter()
	New(svc, logger, false).Register(r)
	return r
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	return nil
}

func TestSignUpEndpoint(t *testing.T) {
	t.Run("creates account and sets cookie", func(t *testing.T) {
		router := newTestRouter(t)

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/signup", map[string]string{
			"email":            "new@x.com",
			"password":         "abc123",
			"confirm_password": "abc123",
		}))

		testutil.AssertStatus(t, rr, http.StatusCreated)
		body := testutil.UnmarshalResponse[map[string]string](t, rr)
		assert.Equal(t, "new@x.com", (*body)["email"])

		cookie := sessionCookie(rr)
		require.NotNil(t, cookie)
		assert.NotEmpty(t, cookie.Value)
		assert.True(t, cookie.HttpOnly)
	})

	t.Run("password mismatch", func(t *testing.T) {
		router := newTestRouter(t)

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/signup", map[string]string{
			"email":            "new@x.com",
			"password":         "abc123",
			"confirm_password": "abc124",
		}))

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorDescription(t, rr, "Passwords do not match.")
		assert.Nil(t, sessionCookie(rr))

		// Nothing was persisted: the same email still signs up cleanly.
		rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/signup", map[string]string{
			"email":            "new@x.com",
			"password":         "abc123",
			"confirm_password": "abc123",
		}))
		testutil.AssertStatus(t, rr, http.StatusCreated)
	})

	t.Run("duplicate email", func(t *testing.T) {
		router := newTestRouter(t)
		body := map[string]string{
			"email":            "new@x.com",
			"password":         "abc123",
			"confirm_password": "abc123",
		}

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/signup", body))
		testutil.AssertStatus(t, rr, http.StatusCreated)

		rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/signup", body))
		testutil.AssertStatus(t, rr, http.StatusConflict)
	})

	t.Run("malformed body", func(t *testing.T) {
		router := newTestRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/auth/signup", nil)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestSignInEndpoint(t *testing.T) {
	router := newTestRouter(t)
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/signup", map[string]string{
		"email":            "driver@example.com",
		"password":         "abc123",
		"confirm_password": "abc123",
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	t.Run("valid credentials", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/signin", map[string]string{
			"email":    "driver@example.com",
			"password": "abc123",
		}))
		testutil.AssertStatus(t, rr, http.StatusOK)
		require.NotNil(t, sessionCookie(rr))
	})

	t.Run("wrong password", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/signin", map[string]string{
			"email":    "driver@example.com",
			"password": "nope",
		}))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
		testutil.AssertErrorDescription(t, rr, "Invalid email or password.")
	})
}

func TestSignOutEndpoint(t *testing.T) {
	router := newTestRouter(t)
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/signup", map[string]string{
		"email":            "driver@example.com",
		"password":         "abc123",
		"confirm_password": "abc123",
	}))
	cookie := sessionCookie(rr)
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodPost, "/auth/signout", nil)
	req.AddCookie(cookie)
	rr = testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusNoContent)
	cleared := sessionCookie(rr)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}

func TestOAuthEndpoints(t *testing.T) {
	t.Run("sign-in start redirects to provider", func(t *testing.T) {
		router := newTestRouter(t)

		rr := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/auth/oauth/google", nil))

		testutil.AssertStatus(t, rr, http.StatusSeeOther)
		location := rr.Header().Get("Location")
		assert.Contains(t, location, "https://provider.example/auth?state=")
	})

	t.Run("draft start returns auth url", func(t *testing.T) {
		router := newTestRouter(t)

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/signup/draft", map[string]string{
			"first_name": "Ada",
			"last_name":  "Lovelace",
			"car_brand":  "Toyota",
		}))

		testutil.AssertStatus(t, rr, http.StatusOK)
		body := testutil.UnmarshalResponse[map[string]string](t, rr)
		assert.Contains(t, (*body)["auth_url"], "state=")
	})

	t.Run("callback with draft lands on dashboard", func(t *testing.T) {
		router := newTestRouter(t)

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/signup/draft", map[string]string{
			"first_name": "Ada",
			"car_brand":  "Toyota",
		}))
		testutil.AssertStatus(t, rr, http.StatusOK)
		body := testutil.UnmarshalResponse[map[string]string](t, rr)
		authURL, err := url.Parse((*body)["auth_url"])
		require.NoError(t, err)
		state := authURL.Query().Get("state")
		require.NotEmpty(t, state)

		rr = testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/auth/callback?code=ok&state="+state, nil))

		testutil.AssertStatus(t, rr, http.StatusSeeOther)
		assert.Equal(t, "/dashboard", rr.Header().Get("Location"))
		require.NotNil(t, sessionCookie(rr))
	})

	t.Run("forged state bounces to sign-up", func(t *testing.T) {
		router := newTestRouter(t)

		rr := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/auth/callback?code=ok&state=forged", nil))

		testutil.AssertStatus(t, rr, http.StatusSeeOther)
		assert.Equal(t, "/signup?error=auth_failed", rr.Header().Get("Location"))
		assert.Nil(t, sessionCookie(rr))
	})
}

func TestResetEndpoints(t *testing.T) {
	router := newTestRouter(t)

	t.Run("unknown email accepted", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/reset-password", map[string]string{
			"email": "nobody@example.com",
		}))
		testutil.AssertStatus(t, rr, http.StatusAccepted)
	})

	t.Run("complete with unknown token", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/reset-password/complete", map[string]string{
			"token":            "bogus",
			"password":         "newpass",
			"confirm_password": "newpass",
		}))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorDescription(t, rr, "This reset link is invalid or has expired.")
	})
}

func TestChangePasswordEndpoint(t *testing.T) {
	router := newTestRouter(t)
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/signup", map[string]string{
		"email":            "driver@example.com",
		"password":         "abc123",
		"confirm_password": "abc123",
	}))
	cookie := sessionCookie(rr)
	require.NotNil(t, cookie)

	t.Run("requires a session", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/password", map[string]string{
			"password":         "newpass",
			"confirm_password": "newpass",
		}))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
		testutil.AssertErrorDescription(t, rr, "Sign in to continue.")
	})

	t.Run("mismatch rejected", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/password", map[string]string{
			"password":         "newpass",
			"confirm_password": "other",
		})
		req.AddCookie(cookie)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorDescription(t, rr, "Passwords do not match.")
	})

	t.Run("updates the password", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/password", map[string]string{
			"password":         "newpass",
			"confirm_password": "newpass",
		})
		req.AddCookie(cookie)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusNoContent)

		rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/signin", map[string]string{
			"email":    "driver@example.com",
			"password": "abc123",
		}))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)

		rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/signin", map[string]string{
			"email":    "driver@example.com",
			"password": "newpass",
		}))
		testutil.AssertStatus(t, rr, http.StatusOK)
	})
}
