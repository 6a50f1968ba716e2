package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	authuc "example.com/storefront-checkout/app/internal/usecase/auth"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)

	token, err := svc.GenerateToken(authuc.Claims{UserID: "42", Email: "an@example.com", Name: "An"})
	require.NoError(t, err)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, "42", claims.UserID)
	require.Equal(t, "an@example.com", claims.Email)
	require.Equal(t, "An", claims.Name)
}

func TestJWTService_RejectsForeignSecret(t *testing.T) {
	token, err := NewJWTService("other", time.Hour).GenerateToken(authuc.Claims{UserID: "42"})
	require.NoError(t, err)

	_, err = NewJWTService("secret", time.Hour).ParseToken(token)
	require.Error(t, err)
}

func TestJWTService_RejectsMissingSubject(t *testing.T) {
	token, err := NewJWTService("secret", time.Hour).GenerateToken(authuc.Claims{Email: "an@example.com"})
	require.NoError(t, err)

	_, err = NewJWTService("secret", time.Hour).ParseToken(token)
	require.ErrorIs(t, err, ErrInvalidClaims)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc := NewJWTService("secret", -time.Minute)
	token, err := svc.GenerateToken(authuc.Claims{UserID: "42"})
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTService_RejectsOtherAlgorithms(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "42"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWTService("secret", time.Hour).ParseToken(token)
	require.Error(t, err)
}
