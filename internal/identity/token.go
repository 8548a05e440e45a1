package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenCodec signs and verifies the session cookie tokens. The token only
// references the session; authorization decisions always consult the session
// store so revocation takes effect immediately.
type TokenCodec struct {
	signingKey []byte
}

func NewTokenCodec(signingKey string) *TokenCodec {
	return &TokenCodec{signingKey: []byte(signingKey)}
}

// Issue mints a signed token for the session, expiring with it.
func (c *TokenCodec) Issue(session Session) (string, error) {
	claims := jwt.MapClaims{
		"sid":   session.ID,
		"sub":   session.UserID,
		"email": session.Email,
		"exp":   session.ExpiresAt.Unix(),
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns the session and user IDs it references.
func (c *TokenCodec) Parse(tokenString string) (sessionID, userID string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.signingKey, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("parse session token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", errors.New("invalid session token")
	}
	sessionID, ok = claims["sid"].(string)
	if !ok || sessionID == "" {
		return "", "", errors.New("missing sid in session token")
	}
	userID, ok = claims["sub"].(string)
	if !ok || userID == "" {
		return "", "", errors.New("missing sub in session token")
	}
	return sessionID, userID, nil
}
