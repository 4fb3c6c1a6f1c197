// ABOUTME: Tests for session token issue/verify
// ABOUTME: Covers round trips, wrong secrets, expiry, and malformed tokens

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_RoundTrip(t *testing.T) {
	s := NewSessions([]byte("test-secret"), time.Hour)

	token, err := s.Issue("user-1")
	require.NoError(t, err)

	userID, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestSessions_WrongSecret(t *testing.T) {
	issuer := NewSessions([]byte("secret-a"), time.Hour)
	verifier := NewSessions([]byte("secret-b"), time.Hour)

	token, err := issuer.Issue("user-1")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessions_Expired(t *testing.T) {
	s := NewSessions([]byte("test-secret"), -time.Minute)

	token, err := s.Issue("user-1")
	require.NoError(t, err)

	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestSessions_Garbage(t *testing.T) {
	s := NewSessions([]byte("test-secret"), time.Hour)
	_, err := s.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessions_DefaultTTL(t *testing.T) {
	s := NewSessions([]byte("test-secret"), 0)
	assert.Equal(t, 24*time.Hour, s.TTL())
}
