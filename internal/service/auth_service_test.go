package service_test

import (
	"testing"
	"time"

	"github.com/SergeiKhy/linkshort/internal/config"
	"github.com/SergeiKhy/linkshort/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthService_Login_PlainPassword(t *testing.T) {
	auth := service.NewAuthService(config.AdminConfig{Password: "s3cret"}, zap.NewNop())

	token, err := auth.Login("s3cret")
	require.NoError(t, err)
	assert.Empty(t, token, "без секрета токены не выдаются")

	_, err = auth.Login("wrong")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = auth.Login("")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestAuthService_Login_BcryptHashTakesPrecedence(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	auth := service.NewAuthService(config.AdminConfig{
		Password:     "plain-pass",
		PasswordHash: string(hash),
	}, zap.NewNop())

	_, err = auth.Login("hashed-pass")
	assert.NoError(t, err)

	_, err = auth.Login("plain-pass")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

// TestAuthService_Login_NotConfigured без настроенного секрета вход невозможен
func TestAuthService_Login_NotConfigured(t *testing.T) {
	auth := service.NewAuthService(config.AdminConfig{}, nil)

	for _, password := range []string{"", "admin", "password"} {
		_, err := auth.Login(password)
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	}
}

func TestAuthService_Token(t *testing.T) {
	auth := service.NewAuthService(config.AdminConfig{
		Password:    "s3cret",
		TokenSecret: "signing-key",
		TokenTTL:    time.Hour,
	}, zap.NewNop())

	token, err := auth.Login("s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, auth.VerifyToken(token))
	assert.ErrorIs(t, auth.VerifyToken(""), service.ErrInvalidToken)
	assert.ErrorIs(t, auth.VerifyToken("garbage"), service.ErrInvalidToken)
	assert.ErrorIs(t, auth.VerifyToken(token+"x"), service.ErrInvalidToken)

	other := service.NewAuthService(config.AdminConfig{Password: "s3cret", TokenSecret: "other-key"}, zap.NewNop())
	assert.ErrorIs(t, other.VerifyToken(token), service.ErrInvalidToken)
}

func TestAuthService_VerifyToken_RejectsExpiredAndForeign(t *testing.T) {
	secret := []byte("signing-key")
	auth := service.NewAuthService(config.AdminConfig{Password: "p", TokenSecret: string(secret)}, zap.NewNop())

	sign := func(claims jwt.RegisteredClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
		require.NoError(t, err)
		return s
	}
	now := time.Now()

	expired := sign(jwt.RegisteredClaims{
		Issuer:    "linkshort",
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
	})
	assert.ErrorIs(t, auth.VerifyToken(expired), service.ErrInvalidToken)

	foreignIssuer := sign(jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	assert.ErrorIs(t, auth.VerifyToken(foreignIssuer), service.ErrInvalidToken)

	noExpiry := sign(jwt.RegisteredClaims{Issuer: "linkshort", Subject: "admin"})
	assert.ErrorIs(t, auth.VerifyToken(noExpiry), service.ErrInvalidToken)
}
