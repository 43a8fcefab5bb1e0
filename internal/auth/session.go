// internal/auth/session.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"wallet-ledger/internal/util"
)

type contextKey string

const accountContextKey contextKey = "account_id"

// SessionManager issues and verifies HS256 session tokens whose subject is the account id.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionManager creates a SessionManager. The secret must not be empty.
func NewSessionManager(secret string, ttl time.Duration) (*SessionManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("session secret: %w", util.ErrNotConfigured)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive: %w", util.ErrInvalidInput)
	}
	return &SessionManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a session token for accountID and returns it with its expiry.
func (m *SessionManager) Issue(accountID string) (string, time.Time, error) {
	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies a session token and returns the account id it was issued for.
func (m *SessionManager) Parse(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now))
	if err != nil || !tok.Valid {
		return "", util.ErrUnauthorized
	}
	if claims.Subject == "" {
		return "", util.ErrUnauthorized
	}
	return claims.Subject, nil
}

// WithAccountID stores the authenticated account id in ctx.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountContextKey, accountID)
}

// AccountIDFromContext returns the authenticated account id, if any.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(accountContextKey).(string)
	return v, ok && v != ""
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return tok, tok != ""
}
