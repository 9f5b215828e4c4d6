package handler

import (
	"errors"
	"net/http"

	"github.com/SergeiKhy/linkshort/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminHandler struct {
	auth      service.AuthService
	analytics service.AnalyticsService
	logger    *zap.Logger
}

func NewAdminHandler(auth service.AuthService, analytics service.AnalyticsService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		auth:      auth,
		analytics: analytics,
		logger:    logger,
	}
}

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

// Login POST /api/admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, LoginResponse{Success: false, Message: "Invalid password"})
		return
	}

	token, err := h.auth.Login(req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.logger.Info("Admin login rejected", zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, LoginResponse{Success: false, Message: "Invalid password"})
			return
		}
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Success: true, Token: token})
}

// Analytics GET /api/analytics
func (h *AdminHandler) Analytics(c *gin.Context) {
	summary, err := h.analytics.Summarize(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// HealthCheck GET /api/health
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "linkshort",
	})
}
