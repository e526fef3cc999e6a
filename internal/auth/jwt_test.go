package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier("test-secret-key")

	token, err := v.Sign(Actor{UserID: 42, Role: RoleSeller}, time.Minute)
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Actor{UserID: 42, Role: RoleSeller}, claims.Actor())
}

func TestVerifier_Expired(t *testing.T) {
	v := NewVerifier("test-secret-key")

	token, err := v.Sign(Actor{UserID: 1, Role: RoleUser}, -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifier_WrongSecret(t *testing.T) {
	token, err := NewVerifier("one").Sign(Actor{UserID: 1, Role: RoleUser}, time.Minute)
	require.NoError(t, err)

	_, err = NewVerifier("two").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_MissingClaims(t *testing.T) {
	v := NewVerifier("test-secret-key")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: "user"}).SignedString([]byte("test-secret-key"))
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrMissingClaim)
}

func TestVerifier_RejectsOtherAlgorithms(t *testing.T) {
	v := NewVerifier("test-secret-key")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{ID: 1, Role: "user"}).SignedString([]byte("test-secret-key"))
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestActor_Privileged(t *testing.T) {
	assert.True(t, Actor{Role: RoleAdmin}.Privileged())
	assert.True(t, System.Privileged())
	assert.False(t, Actor{UserID: 3, Role: RoleSeller}.Privileged())
}
