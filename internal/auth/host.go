// Package auth verifies the opaque bearer credential hosts present when
// creating a room. Players are anonymous and never authenticated.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"live-quiz-service/internal/domain"
)

// HostClaims identifies the account that owns the quizzes being hosted.
type HostClaims struct {
	jwt.RegisteredClaims
}

// HostVerifier validates HS256 host tokens.
type HostVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewHostVerifier(secret string) *HostVerifier {
	return &HostVerifier{secret: []byte(secret), now: time.Now}
}

// VerifyHost returns the token subject. An optional "Bearer " prefix is accepted.
func (v *HostVerifier) VerifyHost(credential string) (string, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(credential), "Bearer "))
	if raw == "" {
		return "", fmt.Errorf("missing host credential: %w", domain.ErrUnauthorized)
	}

	claims := &HostClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid host token: %w", domain.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("host token without subject: %w", domain.ErrUnauthorized)
	}
	return claims.Subject, nil
}

// IssueHostToken signs a token for subject valid for ttl. Used by the bot
// command and tests; account management itself lives elsewhere.
func IssueHostToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := HostClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
