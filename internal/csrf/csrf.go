// Package csrf issues and checks the signed tokens that prove a form
// submission originated from a page this server delivered.
package csrf

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is the token lifetime. Tokens stay valid for the full window
// regardless of how many submissions they accompany; they are deliberately
// not single-use (see DESIGN.md before changing this).
const DefaultTTL = 24 * time.Hour

// Service signs and verifies CSRF tokens. Both operations are stateless
// pure computations; a Service is safe for concurrent use.
type Service struct {
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

// New returns a Service with the default lifetime.
func New(secret string) Service {
	return Service{Secret: secret, TTL: DefaultTTL}
}

type tokenClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

func (s Service) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultTTL
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Issue creates a token bound to sessionID. When sessionID is empty a fresh
// one is generated and returned so the client can persist and resend it.
func (s Service) Issue(sessionID string) (token, sid string, err error) {
	sid = sessionID
	if sid == "" {
		sid = uuid.NewString()
	}
	now := s.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl())),
		},
		SessionID: sid,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Secret))
	if err != nil {
		return "", "", err
	}
	return token, sid, nil
}

// Validate reports whether token carries a good signature, is inside its
// lifetime, and (when sessionID is non-empty) was issued for that session.
// Malformed or tampered input degrades to false, never to an error: callers
// in the request pipeline must not have a failure path that aborts.
func (s Service) Validate(token, sessionID string) bool {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(s.Secret) == "" {
		return false
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	claims := &tokenClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return false
	}
	if claims.SessionID == "" {
		return false
	}
	if sessionID != "" && claims.SessionID != sessionID {
		return false
	}
	return true
}
