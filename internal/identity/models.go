// Package identity holds the account domain: users, federated identities,
// and the sessions that prove authentication.
package identity

import "time"

// User is a driver account. PasswordHash is empty for accounts created
// through a third-party provider that never set a password.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity links a user to a third-party provider account. At most one link
// per (provider, provider user id) pair.
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session is the proof of authentication held by the browser via the session
// cookie. The cookie carries a signed token referencing the session by ID;
// the session record itself lives server-side so sign-out revokes instantly.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its TTL at the given instant.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
