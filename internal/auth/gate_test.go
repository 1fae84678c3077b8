package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateWrongPin(t *testing.T) {
	gate := NewGate("1234", "test-secret", 30*time.Minute, nil, nil)

	session, err := gate.Authenticate(context.Background(), "0000", "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidPin)
	assert.Nil(t, session)

	// Same length, off by one digit.
	_, err = gate.Authenticate(context.Background(), "1235", "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidPin)

	// Prefix of the real PIN.
	_, err = gate.Authenticate(context.Background(), "123", "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidPin)
}

func TestAuthenticateValidateLogout(t *testing.T) {
	gate := NewGate("1234", "test-secret", 30*time.Minute, nil, nil)

	session, err := gate.Authenticate(context.Background(), "1234", "127.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.NotEmpty(t, session.Token)

	validated, err := gate.Validate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.JTI, validated.JTI)

	gate.Logout(session.Token)

	// Revoked immediately, even though the JWT itself is still unexpired.
	_, err = gate.Validate(session.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Logout is idempotent.
	gate.Logout(session.Token)
}

func TestValidateRejectsGarbage(t *testing.T) {
	gate := NewGate("1234", "test-secret", 30*time.Minute, nil, nil)

	_, err := gate.Validate("")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = gate.Validate("not-a-jwt")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	gate := NewGate("1234", "test-secret", 30*time.Minute, nil, nil)
	other := NewGate("1234", "other-secret", 30*time.Minute, nil, nil)

	session, err := other.Authenticate(context.Background(), "1234", "127.0.0.1")
	require.NoError(t, err)

	_, err = gate.Validate(session.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidateExpiredSession(t *testing.T) {
	gate := NewGate("1234", "test-secret", 30*time.Minute, nil, nil)

	issued := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return issued }

	session, err := gate.Authenticate(context.Background(), "1234", "127.0.0.1")
	require.NoError(t, err)

	// Still valid one minute before the TTL runs out.
	gate.now = func() time.Time { return issued.Add(29 * time.Minute) }
	_, err = gate.Validate(session.Token)
	assert.NoError(t, err)

	gate.now = func() time.Time { return issued.Add(31 * time.Minute) }
	_, err = gate.Validate(session.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticateLockout(t *testing.T) {
	limiter := NewMemoryLimiter(5, 15*time.Minute)
	gate := NewGate("1234", "test-secret", 30*time.Minute, limiter, nil)

	for i := 0; i < 5; i++ {
		_, err := gate.Authenticate(context.Background(), "0000", "10.0.0.9")
		assert.ErrorIs(t, err, ErrInvalidPin)
	}

	// Sixth attempt is blocked even with the correct PIN.
	_, err := gate.Authenticate(context.Background(), "1234", "10.0.0.9")
	assert.ErrorIs(t, err, ErrTooManyFailures)

	// Other clients are unaffected.
	session, err := gate.Authenticate(context.Background(), "1234", "10.0.0.10")
	assert.NoError(t, err)
	assert.NotNil(t, session)
}
