package handler

import (
	"net/http"
	"strings"

	"github.com/SergeiKhy/linkshort/internal/middleware"
	"github.com/SergeiKhy/linkshort/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterOptions настройки HTTP-слоя
type RouterOptions struct {
	AllowedOrigins string
	// RequireAdminToken закрывает админские маршруты токеном из /api/admin/login
	RequireAdminToken bool
}

func NewRouter(
	linkService service.LinkService,
	redirectService service.RedirectService,
	analyticsService service.AnalyticsService,
	authService service.AuthService,
	opts RouterOptions,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()

	// Порядок важен: CORS должен выставить заголовки и на 404, и на 500
	router.Use(
		middleware.Recovery(logger),
		middleware.Logger(logger),
		middleware.Metrics(),
		middleware.CORS(opts.AllowedOrigins),
	)

	linkHandler := NewLinkHandler(linkService, redirectService, logger)
	adminHandler := NewAdminHandler(authService, analyticsService, logger)

	api := router.Group("/api")
	{
		api.GET("/health", HealthCheck)
		api.POST("/shorten", linkHandler.Shorten)
		api.GET("/stats/:short", linkHandler.GetStats)
		api.POST("/admin/login", adminHandler.Login)

		// Админские маршруты
		admin := api.Group("")
		if opts.RequireAdminToken {
			admin.Use(middleware.RequireAdmin(authService))
		}
		admin.GET("/links", linkHandler.ListLinks)
		admin.PUT("/links/:id", linkHandler.UpdateLink)
		admin.DELETE("/links/:id", linkHandler.DeleteLink)
		admin.GET("/analytics", adminHandler.Analytics)
	}

	// Редирект (корневой путь)
	router.GET("/", linkHandler.Home)
	router.GET("/:code", linkHandler.Redirect)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "API endpoint not found",
			})
			return
		}
		linkHandler.Home(c)
	})

	return router
}
