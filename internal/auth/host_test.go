package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"live-quiz-service/internal/domain"
)

func TestVerifyHostAcceptsValidToken(t *testing.T) {
	token, err := IssueHostToken("s3cret", "host-42", time.Hour)
	require.NoError(t, err)

	v := NewHostVerifier("s3cret")
	subject, err := v.VerifyHost(token)
	require.NoError(t, err)
	require.Equal(t, "host-42", subject)

	subject, err = v.VerifyHost("Bearer " + token)
	require.NoError(t, err)
	require.Equal(t, "host-42", subject)
}

func TestVerifyHostRejects(t *testing.T) {
	v := NewHostVerifier("s3cret")

	wrongKey, err := IssueHostToken("other", "host-42", time.Hour)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, HostClaims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, HostClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "host-42",
	}}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for name, credential := range map[string]string{
		"empty":      "",
		"garbage":    "not-a-jwt",
		"wrong key":  wrongKey,
		"no subject": noSubject,
		"no expiry":  noExpiry,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.VerifyHost(credential)
			require.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestVerifyHostRejectsExpired(t *testing.T) {
	token, err := IssueHostToken("s3cret", "host-42", time.Minute)
	require.NoError(t, err)

	v := NewHostVerifier("s3cret")
	v.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = v.VerifyHost(token)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}
