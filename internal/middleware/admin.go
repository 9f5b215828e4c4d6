package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenVerifier проверяет токен сессии администратора
type TokenVerifier interface {
	VerifyToken(token string) error
}

// RequireAdmin middleware для админских маршрутов.
// Токен передаётся в заголовке Authorization: Bearer <token>.
func RequireAdmin(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_token",
				"message": "Требуется токен администратора. Передайте его через Authorization: Bearer",
			})
			return
		}

		if err := verifier.VerifyToken(token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Невалидный или просроченный токен администратора",
			})
			return
		}

		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
