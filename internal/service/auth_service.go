package service

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/SergeiKhy/linkshort/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer  = "linkshort"
	tokenSubject = "admin"
)

// AuthService проверка общего пароля администратора.
// Секрет хранится только на сервере.
type AuthService interface {
	// Login возвращает токен сессии (пустой, если секрет токенов не настроен)
	Login(password string) (string, error)
	VerifyToken(token string) error
}

type authService struct {
	password     []byte
	passwordHash []byte
	tokenSecret  []byte
	tokenTTL     time.Duration
	logger       *zap.Logger
}

// NewAuthService создаёт сервис из конфигурации администратора
func NewAuthService(cfg config.AdminConfig, logger *zap.Logger) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if cfg.Password == "" && cfg.PasswordHash == "" {
		logger.Warn("Admin password is not configured, admin login is disabled")
	}
	return &authService{
		password:     []byte(cfg.Password),
		passwordHash: []byte(cfg.PasswordHash),
		tokenSecret:  []byte(cfg.TokenSecret),
		tokenTTL:     ttl,
		logger:       logger,
	}
}

func (s *authService) Login(password string) (string, error) {
	if !s.checkPassword(password) {
		return "", ErrInvalidCredentials
	}

	if len(s.tokenSecret) == 0 {
		return "", nil
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   tokenSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.tokenSecret)
	if err != nil {
		s.logger.Error("Failed to sign admin token", zap.Error(err))
		return "", err
	}
	return token, nil
}

func (s *authService) checkPassword(password string) bool {
	if password == "" {
		return false
	}

	if len(s.passwordHash) > 0 {
		err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
		if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Error("Invalid ADMIN_PASSWORD_HASH", zap.Error(err))
		}
		return err == nil
	}

	if len(s.password) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(s.password, []byte(password)) == 1
}

func (s *authService) VerifyToken(token string) error {
	if len(s.tokenSecret) == 0 || token == "" {
		return ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithSubject(tokenSubject),
		jwt.WithExpirationRequired(),
	)
	_, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.tokenSecret, nil
	})
	if err != nil {
		return ErrInvalidToken
	}
	return nil
}
