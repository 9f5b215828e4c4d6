package handler

import (
	"errors"
	"net/http"

	"github.com/SergeiKhy/linkshort/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// respondError переводит ошибку сервиса в HTTP-ответ.
// Детали ошибок хранилища пишутся в лог, но не отдаются клиенту.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_url",
			Message: "URL must be absolute (scheme with host, or mailto:/tel: style) and at most 2048 characters",
		})
	case errors.Is(err, service.ErrInvalidShortFormat):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_short",
			Message: "Short code must be 2-50 characters of letters, digits, '_' or '-'",
		})
	case errors.Is(err, service.ErrShortTaken):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "short_taken",
			Message: "Short code is already in use",
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Link not found",
		})
	case errors.Is(err, service.ErrAllocationExhausted):
		logger.Error("Short code allocation exhausted", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "allocation_exhausted",
			Message: "Could not allocate a short code, try again later",
		})
	default:
		logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Internal server error",
		})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: message,
	})
}
