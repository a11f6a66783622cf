package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"pharmacie-admin/internal/dataprovider"
	"pharmacie-admin/internal/routes"
	"pharmacie-admin/pkg/config"
	apperrors "pharmacie-admin/pkg/errors"
	"pharmacie-admin/pkg/eventbus"
	applogger "pharmacie-admin/pkg/logger"
	appmiddleware "pharmacie-admin/pkg/middleware"
	"pharmacie-admin/pkg/service"
	"pharmacie-admin/pkg/storage"
	"pharmacie-admin/pkg/utils"
	"pharmacie-admin/pkg/validation"
	"pharmacie-admin/pkg/websocket"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

func main() {
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "internal server error", err, nil)
				utils.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentDisposition},
	}))
	e.Use(appmiddleware.RequestLogger(logger))

	e.Validator = validation.New()

	bus := eventbus.New(logger)

	var wg conc.WaitGroup
	defer wg.Wait()

	var store storage.Storage
	switch cfg.Storage.Driver {
	case "redis":
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			logger.Fatal("could not connect to redis", zap.Error(err), zap.String("address", cfg.Redis.Address))
		}
		redisStorage := storage.NewRedisStorage(redisClient, cfg.Redis.Channel, cfg.Session.TTL, bus, logger)
		wg.Go(func() {
			if err := redisStorage.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("storage listener stopped", zap.Error(err))
			}
		})
		store = redisStorage
	default:
		logger.Warn("using in-memory storage, sessions are lost on restart")
		store = storage.NewMemoryStorage(bus)
	}

	client, err := dataprovider.New(cfg.Backend.APIURL, &http.Client{Timeout: cfg.Backend.Timeout}, bus, logger)
	if err != nil {
		logger.Fatal("invalid backend url", zap.Error(err), zap.String("url", cfg.Backend.APIURL))
	}

	hub := websocket.NewHub(logger)

	release, err := routes.InitRouter(e, routes.Deps{
		Client:  client,
		Storage: store,
		Bus:     bus,
		Hub:     hub,
		JWT:     service.NewJWTService(cfg.Session.SecretKey, cfg.Session.TTL),
	}, &routes.Loggers{
		Main:      logger,
		Auth:      logger.Named("auth"),
		Resources: logger.Named("resources"),
		Orders:    logger.Named("orders"),
	}, cfg)
	if err != nil {
		logger.Fatal("could not build routes", zap.Error(err))
	}
	defer release()
	wg.Go(func() { hub.Run(ctx) })

	wg.Go(func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("backend", cfg.Backend.APIURL))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	})

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
