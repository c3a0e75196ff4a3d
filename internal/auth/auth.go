// Package auth implements the single-user password gate: a password
// login that mints an HS256 token, and verification of bearer tokens on
// protected routes.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// subject is the fixed claim for the single vault owner.
const subject = "user"

const (
	// DefaultTTL is the token lifetime for a plain login.
	DefaultTTL = 7 * 24 * time.Hour
	// RememberTTL is the token lifetime when remember_me is set.
	RememberTTL = 30 * 24 * time.Hour
)

// ErrInvalidToken is returned by Verify for any token that does not
// grant access, whatever the underlying reason.
var ErrInvalidToken = errors.New("auth: invalid token")

// Service issues and verifies access tokens for one shared password.
type Service struct {
	secret   []byte
	password string
	enabled  bool
}

// NewService creates an auth service. With enabled false every
// verification succeeds and the login endpoint still works, which keeps
// local development friction-free.
func NewService(secret, password string, enabled bool) *Service {
	return &Service{secret: []byte(secret), password: password, enabled: enabled}
}

// Enabled reports whether the gate is enforced.
func (s *Service) Enabled() bool {
	return s.enabled
}

// CheckPassword compares the candidate against the configured password
// in constant time.
func (s *Service) CheckPassword(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.password)) == 1
}

// Issue mints a signed token. remember selects the extended lifetime.
func (s *Service) Issue(remember bool) (string, error) {
	ttl := DefaultTTL
	if remember {
		ttl = RememberTTL
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry, and subject. When the gate is
// disabled it accepts anything.
func (s *Service) Verify(raw string) error {
	if !s.enabled {
		return nil
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	if claims.Subject != subject {
		return ErrInvalidToken
	}
	return nil
}
