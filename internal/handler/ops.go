package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/SergeiKhy/linkshort/internal/service"
	"github.com/gin-gonic/gin"
)

const readyTimeout = 3 * time.Second

// Pinger проверка доступности хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// ClickStatsSource источник статистики буфера кликов
type ClickStatsSource interface {
	Stats() service.ChannelStats
}

type ReadyResponse struct {
	Status string               `json:"status"`
	Clicks service.ChannelStats `json:"clicks"`
}

// NewOpsRouter служебный роутер для отдельного порта: /metrics и /readyz
func NewOpsRouter(db Pinger, clicks ClickStatsSource, metricsHandler http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(metricsHandler))

	// Готовность: БД отвечает на ping; заполненность буфера кликов для диагностики
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()

		resp := ReadyResponse{Status: "ready"}
		if clicks != nil {
			resp.Clicks = clicks.Stats()
		}

		if err := db.Ping(ctx); err != nil {
			resp.Status = "database unavailable"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	})

	return r
}
