package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jengzang/car-location-go/internal/algorithm"
	"github.com/jengzang/car-location-go/internal/api"
	"github.com/jengzang/car-location-go/internal/cache"
	"github.com/jengzang/car-location-go/internal/config"
	"github.com/jengzang/car-location-go/internal/database"
	"github.com/jengzang/car-location-go/internal/handler"
	"github.com/jengzang/car-location-go/internal/models"
	"github.com/jengzang/car-location-go/internal/repository"
	"github.com/jengzang/car-location-go/internal/service"
	"github.com/jengzang/car-location-go/internal/session"
	"github.com/jengzang/car-location-go/internal/source"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(config.GetConfigPath())
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup logger
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		logrus.Fatalf("Failed to configure logging: %v", err)
	}
	if file := cfg.File(); file != "" {
		logger.WithField("file", file).Info("Configuration loaded")
		cfg.Watch(logger)
	} else {
		logger.Info("Config file not found, using defaults")
	}

	model, err := cfg.VehicleModel()
	if err != nil {
		logger.Fatalf("Invalid vehicle model: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, closeStore, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}
	defer closeStore()

	latestCache := cache.New(cfg.Cache.RedisURL, logger)
	defer latestCache.Close()

	feed := repository.NewHistoryFeed(store, cfg.History.StreamLimit, logger)
	writer := service.NewWriter(feed, latestCache, cfg.Pipeline.WriterQueue, logger)
	defer writer.Close()

	// Initialize location source
	srcCfg := source.Config{
		BufferSize: cfg.Source.BufferSize,
		Fixtures:   cfg.Source.Fixtures,
	}
	if device := cfg.Source.LiveDevice; device != "" {
		srcCfg.Provider = source.NewDeviceProvider(device)
		srcCfg.Permission = func() bool {
			return cfg.Source.LivePermitted && source.DeviceAvailable(device)
		}
	}
	src := source.New(srcCfg, logger)

	selector := algorithm.NewSelector(cfg.Pipeline.AlgorithmOptions())
	coordinator := service.NewCoordinator(
		service.CoordinatorConfig{
			Model:     model,
			BatchSize: cfg.Pipeline.BatchSize,
			Interval:  cfg.Source.Interval,
		},
		src,
		func(m models.VehicleModel) service.Filter { return selector.ForModel(m) },
		writer,
		session.NewBuffer(cfg.Session.MaxPoints),
		logger,
	)
	defer coordinator.Stop()

	if cfg.Source.AutoStart {
		if _, err := coordinator.Start(ctx, models.SourceMode(cfg.Source.Mode)); err != nil {
			logger.WithError(err).Warn("Automatic session start failed")
		}
	}

	// Initialize router
	gin.SetMode(cfg.Server.Mode)
	router := api.SetupRouter(api.Handlers{
		Session: handler.NewSessionHandler(coordinator, models.SourceMode(cfg.Source.Mode)),
		History: handler.NewHistoryHandler(service.NewHistoryService(feed, latestCache, logger), feed),
	}, logger)

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":     srv.Addr,
			"carModel": model.DisplayName(),
			"driver":   cfg.Database.Driver,
		}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
}

// openStore connects the configured backend and returns a close func
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *logrus.Logger) (repository.LocationStore, func(), error) {
	switch cfg.Driver {
	case "mongo":
		db, err := repository.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewMongoLocationStore(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			disconnect(db, logger)
			return nil, nil, err
		}
		logger.WithField("database", cfg.MongoDatabase).Info("Connected to MongoDB")
		return store, func() { disconnect(db, logger) }, nil

	default:
		db, err := database.Open(database.Config{Path: cfg.Path, MaxOpenConns: cfg.MaxOpenConns}, logger)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLiteLocationStore(db), func() { closeDB(db, logger) }, nil
	}
}

func disconnect(db *mongo.Database, logger *logrus.Logger) {
	if err := db.Client().Disconnect(context.Background()); err != nil {
		logger.WithError(err).Warn("MongoDB disconnect failed")
	}
}

func closeDB(db *sql.DB, logger *logrus.Logger) {
	if err := db.Close(); err != nil {
		logger.WithError(err).Warn("Database close failed")
	}
}
