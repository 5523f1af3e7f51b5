// Package token issues and verifies the signed bearer tokens that carry a user's identity.
// Verification is stateless: a token stays valid until it expires.
package token

import (
	"errors"
	"time"

	"example.com/minitweet/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
)

const DefaultIssuer = "minitweet"

type Service struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// New returns a token service signing HS256 tokens valid for ttl.
func New(secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: DefaultIssuer,
		now:    time.Now,
	}
}

// WithClock replaces the time source. Signatures are deterministic for a fixed clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	c := *s
	c.now = now
	return &c
}

// Issue signs a token whose subject is userID.
func (s *Service) Issue(userID string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, apperr.Internal(err, "sign token")
	}
	return signed, exp.Truncate(time.Second), nil
}

// Verify checks signature, issuer and expiry and returns the user id.
func (s *Service) Verify(raw string) (string, error) {
	if raw == "" {
		return "", apperr.ErrTokenInvalid
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperr.ErrTokenExpired
		}
		return "", apperr.ErrTokenInvalid
	}

	if claims.Subject == "" {
		return "", apperr.ErrTokenInvalid
	}
	return claims.Subject, nil
}
