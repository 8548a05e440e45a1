package gate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driverportal/internal/identity"
	"driverportal/internal/identity/handler"
	"driverportal/pkg/requestcontext"
	"driverportal/pkg/testutil"
)

type fakeSessions struct {
	sessions map[string]identity.Session
	profiles map[string]bool
	checkErr error
}

func (f *fakeSessions) ResolveSession(_ context.Context, token string) (identity.Session, error) {
	session, ok := f.sessions[token]
	if !ok {
		return identity.Session{}, errors.New("unknown session")
	}
	return session, nil
}

func (f *fakeSessions) HasProfile(_ context.Context, driverID string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.profiles[driverID], nil
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		sessions: map[string]identity.Session{
			"valid-token": {
				ID:        "sess-1",
				UserID:    "driver-1",
				Email:     "driver@example.com",
				ExpiresAt: time.Now().Add(time.Hour),
			},
		},
		profiles: make(map[string]bool),
	}
}

func newGate(sessions SessionSource) *Gate {
	return New(sessions, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestWithToken(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: handler.SessionCookie, Value: token})
	}
	return req
}

func TestRequireSessionPage(t *testing.T) {
	t.Run("no cookie redirects to sign-in", func(t *testing.T) {
		g := newGate(newFakeSessions())

		rr := testutil.DoRequest(g.RequireSessionPage(okHandler()), requestWithToken(""))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/signin", rr.Header().Get("Location"))
	})

	t.Run("invalid token redirects to sign-in", func(t *testing.T) {
		g := newGate(newFakeSessions())

		rr := testutil.DoRequest(g.RequireSessionPage(okHandler()), requestWithToken("garbage"))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/signin", rr.Header().Get("Location"))
	})

	t.Run("valid session passes and annotates context", func(t *testing.T) {
		g := newGate(newFakeSessions())
		var gotDriverID string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotDriverID = requestcontext.DriverID(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		rr := testutil.DoRequest(g.RequireSessionPage(next), requestWithToken("valid-token"))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "driver-1", gotDriverID)
	})
}

func TestRequireProfilePage(t *testing.T) {
	t.Run("missing profile redirects to form", func(t *testing.T) {
		sessions := newFakeSessions()
		g := newGate(sessions)
		chain := g.RequireSessionPage(g.RequireProfilePage(okHandler()))

		rr := testutil.DoRequest(chain, requestWithToken("valid-token"))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/form", rr.Header().Get("Location"))
	})

	t.Run("complete profile passes", func(t *testing.T) {
		sessions := newFakeSessions()
		sessions.profiles["driver-1"] = true
		g := newGate(sessions)
		chain := g.RequireSessionPage(g.RequireProfilePage(okHandler()))

		rr := testutil.DoRequest(chain, requestWithToken("valid-token"))

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("check failure fails closed", func(t *testing.T) {
		sessions := newFakeSessions()
		sessions.checkErr = errors.New("store down")
		g := newGate(sessions)
		chain := g.RequireSessionPage(g.RequireProfilePage(okHandler()))

		rr := testutil.DoRequest(chain, requestWithToken("valid-token"))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/signin", rr.Header().Get("Location"))
	})
}

func TestSkipIfProfiled(t *testing.T) {
	t.Run("complete profile bounces to dashboard", func(t *testing.T) {
		sessions := newFakeSessions()
		sessions.profiles["driver-1"] = true
		g := newGate(sessions)
		chain := g.RequireSessionPage(g.SkipIfProfiled(okHandler()))

		rr := testutil.DoRequest(chain, requestWithToken("valid-token"))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/dashboard", rr.Header().Get("Location"))
	})

	t.Run("incomplete profile sees the form", func(t *testing.T) {
		g := newGate(newFakeSessions())
		chain := g.RequireSessionPage(g.SkipIfProfiled(okHandler()))

		rr := testutil.DoRequest(chain, requestWithToken("valid-token"))

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestRequireSessionAPI(t *testing.T) {
	t.Run("missing session yields 401", func(t *testing.T) {
		g := newGate(newFakeSessions())

		rr := testutil.DoRequest(g.RequireSessionAPI(okHandler()), requestWithToken(""))

		require.Equal(t, http.StatusUnauthorized, rr.Code)
		testutil.AssertErrorDescription(t, rr, "Sign in to continue.")
	})

	t.Run("valid session passes", func(t *testing.T) {
		g := newGate(newFakeSessions())

		rr := testutil.DoRequest(g.RequireSessionAPI(okHandler()), requestWithToken("valid-token"))

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestRequireProfileAPI(t *testing.T) {
	t.Run("missing profile yields 409", func(t *testing.T) {
		g := newGate(newFakeSessions())
		chain := g.RequireSessionAPI(g.RequireProfileAPI(okHandler()))

		rr := testutil.DoRequest(chain, requestWithToken("valid-token"))

		require.Equal(t, http.StatusConflict, rr.Code)
		testutil.AssertErrorDescription(t, rr, "Complete your driver profile to continue.")
	})

	t.Run("complete profile passes", func(t *testing.T) {
		sessions := newFakeSessions()
		sessions.profiles["driver-1"] = true
		g := newGate(sessions)
		chain := g.RequireSessionAPI(g.RequireProfileAPI(okHandler()))

		rr := testutil.DoRequest(chain, requestWithToken("valid-token"))

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
