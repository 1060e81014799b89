package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/piresc/navieta/internal/pkg/config"
	"github.com/piresc/navieta/internal/pkg/database"
	"github.com/piresc/navieta/internal/pkg/health"
	"github.com/piresc/navieta/internal/pkg/logger"
	"github.com/piresc/navieta/internal/pkg/middleware"
	"github.com/piresc/navieta/internal/pkg/models"
	nsqpkg "github.com/piresc/navieta/internal/pkg/nsq"
	"github.com/piresc/navieta/internal/pkg/server"
	"github.com/piresc/navieta/services/route"
	gatewayHTTP "github.com/piresc/navieta/services/route/gateway/http"
	gatewayNSQ "github.com/piresc/navieta/services/route/gateway/nsq"
	httpHandler "github.com/piresc/navieta/services/route/handler/http"
	"github.com/piresc/navieta/services/route/repository"
	"github.com/piresc/navieta/services/route/usecase"
)

func main() {
	appName := "navieta"
	configPath := os.Getenv("CONFIG_PATH")
	configs := config.InitConfig(configPath)

	zapLogger, err := logger.NewZapLogger(configs.Logger)
	if err != nil {
		log.Fatalf("Failed to create Zap logger: %v", err)
	}
	defer zapLogger.Close()
	logger.SetGlobalLogger(zapLogger)

	logger.Info("Starting application",
		logger.String("app", appName),
		logger.String("version", configs.App.Version),
		logger.String("environment", configs.App.Environment))

	// Initialize Echo router
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestIDMiddleware())
	e.Use(middleware.PanicRecoveryMiddleware())
	e.Use(logger.ZapEchoMiddleware(zapLogger))

	health.RegisterHealthEndpoints(e, appName)

	shutdownTimeout := time.Duration(configs.Server.ShutdownTimeout) * time.Second
	srv := server.NewGracefulServer(e, zapLogger, configs.Server.Port, shutdownTimeout)

	// Initialize the route store: Postgres when configured, otherwise the
	// ROUTES environment list.
	routeRepo, closeRepo, err := initRouteRepository(configs)
	if err != nil {
		logger.Fatal("Failed to initialize route store", logger.Err(err))
	}

	// Redis is the optional second cache level for geocode results.
	var redisClient *database.RedisClient
	if configs.Redis.Host != "" {
		redisClient, err = database.NewRedisClient(configs.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", logger.Err(err))
		}
	}

	// Initialize gateways
	naverGW := gatewayHTTP.NewNaverClient(configs.Naver)
	entityGW := gatewayHTTP.NewHassClient(configs.HomeAssistant)

	var eventsGW route.EventsGW
	var producer *nsqpkg.Producer
	if configs.NSQ.Address != "" {
		producer, err = nsqpkg.NewProducer(configs.NSQ.Address)
		if err != nil {
			logger.Fatal("Failed to connect to NSQ", logger.Err(err))
		}
		eventsGW = gatewayNSQ.NewPublisher(producer, configs.NSQ.Topic)
	}

	// Initialize UseCase
	geocache := usecase.NewGeoCache(naverGW, redisClient)
	routeUC := usecase.NewRouteUC(configs, routeRepo, naverGW, entityGW, eventsGW, geocache)

	if err := routeUC.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start route engine", logger.Err(err))
	}

	// Pollers stop first so nothing touches the stores below mid-close.
	srv.RegisterCleanup(func(context.Context) error {
		routeUC.Stop()
		return nil
	})
	if producer != nil {
		srv.RegisterCleanup(func(context.Context) error {
			producer.Stop()
			return nil
		})
	}
	if redisClient != nil {
		srv.RegisterCleanup(func(context.Context) error { return redisClient.Close() })
	}
	srv.RegisterCleanup(func(context.Context) error { return closeRepo() })

	// Register service routes
	routeHandler := httpHandler.NewRouteHandler(routeUC)
	routeHandler.RegisterRoutes(e, configs)

	if err := srv.Start(); err != nil {
		logger.Error("Server exited with error", logger.Err(err))
	}
}

// initRouteRepository picks the route store. Postgres when a database host
// is configured, otherwise the ROUTES environment list. The returned close
// function is a no-op for the environment store.
func initRouteRepository(configs *models.Config) (route.RouteRepo, func() error, error) {
	if configs.Database.Host == "" {
		repo, err := repository.NewEnvRouteRepository(config.GetEnv("ROUTES", ""))
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using environment route store")
		return repo, func() error { return nil }, nil
	}

	postgresClient, err := database.NewPostgresClient(configs.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	repo := repository.NewRouteRepository(configs, postgresClient.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.EnsureSchema(ctx); err != nil {
		postgresClient.Close()
		return nil, nil, err
	}

	logger.Info("Using PostgreSQL route store",
		logger.String("host", configs.Database.Host),
		logger.String("database", configs.Database.Database))
	return repo, postgresClient.Close, nil
}
