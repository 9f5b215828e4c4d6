package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/linkshort/internal/config"
	"github.com/SergeiKhy/linkshort/internal/handler"
	"github.com/SergeiKhy/linkshort/internal/metrics"
	"github.com/SergeiKhy/linkshort/internal/repository"
	"github.com/SergeiKhy/linkshort/internal/service"
	"github.com/SergeiKhy/linkshort/internal/shortcode"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger := newLogger(cfg.App.Env)
	defer logger.Sync()

	// Подключение к БД (postgres) и миграции
	if err := repository.Migrate(cfg.DB.MigrationURL(), logger); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	db, err := repository.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Redis опционален: без него кэш только локальный
	var redisDB *repository.RedisDB
	if cfg.Redis.Enabled {
		redisDB, err = repository.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisDB.Close()
		logger.Info("Connected to Redis")
	}

	var localCache *repository.LocalCache
	if cfg.Cache.LocalEnabled {
		localCache, err = repository.NewLocalCache(cfg.Cache.LocalMaxItems, cfg.Cache.LocalTTL)
		if err != nil {
			logger.Fatal("Failed to create local cache", zap.Error(err))
		}
		defer localCache.Close()
	}

	// Инициализация репозиториев
	linkRepo := repository.NewLinkRepository(db)
	cacheRepo := repository.NewCacheRepository(redisDB, localCache)

	// Инициализация процессора кликов (Worker Pool)
	clickProcessor := service.NewClickProcessor(linkRepo, cfg.Clicks.Workers, cfg.Clicks.Buffer, logger)
	clickProcessor.Start()

	// Инициализация сервисов
	linkService := service.NewLinkService(linkRepo, cacheRepo, shortcode.NewGenerator(), cfg.Cache.TTL, logger)
	redirectService := service.NewRedirectService(linkRepo, cacheRepo, clickProcessor, cfg.Cache.TTL, logger)
	analyticsService := service.NewAnalyticsService(linkRepo)
	authService := service.NewAuthService(cfg.Admin, logger)

	if cfg.App.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Init()
	err = metrics.RegisterClickBuffer(prometheus.DefaultRegisterer, func() (int, int) {
		stats := clickProcessor.Stats()
		return stats.BufferUsed, stats.BufferSize
	})
	if err != nil {
		logger.Fatal("Failed to register click buffer metrics", zap.Error(err))
	}

	// Настройка роутера
	router := handler.NewRouter(
		linkService,
		redirectService,
		analyticsService,
		authService,
		handler.RouterOptions{
			AllowedOrigins:    cfg.CORS.AllowedOrigins,
			RequireAdminToken: cfg.Admin.RequireToken,
		},
		logger,
	)

	// Запуск сервера
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск в горутине
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Метрики на отдельном порту, чтобы /metrics не перекрывал короткий код
	var metricsSrv *http.Server
	if cfg.App.MetricsPort != "" {
		metricsSrv = newMetricsServer(cfg.App.MetricsPort, handler.NewOpsRouter(db.Pool, clickProcessor, promhttp.Handler()))
		go func() {
			logger.Info("Metrics server starting", zap.String("port", cfg.App.MetricsPort))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logger.Error("Metrics server forced to shutdown", zap.Error(err))
		}
	}

	// Новых редиректов уже нет, дописываем принятые клики до закрытия пула БД
	clickProcessor.Stop()

	logger.Info("Server exited")
}

func newLogger(env string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

func newMetricsServer(port string, ops http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           ops,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
