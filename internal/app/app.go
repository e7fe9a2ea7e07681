package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"

	httpserver "tg-clicker/internal/app/http-server"
	"tg-clicker/internal/config"
	"tg-clicker/internal/handlers"
	"tg-clicker/internal/lib/jwt"
	"tg-clicker/internal/lib/metrics"
	"tg-clicker/internal/middlewares"
	"tg-clicker/internal/repository/file"
	"tg-clicker/internal/repository/memory"
	"tg-clicker/internal/repository/mongo"
	"tg-clicker/internal/repository/postgres"
	"tg-clicker/internal/repository/redis"
	"tg-clicker/internal/routes"
	"tg-clicker/internal/services"
)

type Storage interface {
	services.PlayerRepository
	io.Closer
}

type App struct {
	HTTPServer *httpserver.Server
	storage    Storage
}

func New(log *slog.Logger, cfg *config.Config) *App {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.ConnectTimeout)
	defer cancel()

	storage, err := NewStorage(ctx, cfg.Storage)
	if err != nil {
		panic(err)
	}

	log.Info("storage ready", slog.String("driver", cfg.Storage.Driver))

	r := NewRouter(log, cfg, storage)

	server := httpserver.NewServer(log, cfg.Server.Address, cfg.Server.Timeout, r)

	return &App{
		HTTPServer: server,
		storage:    storage,
	}
}

// NewRouter wires services, handlers and middlewares over an opened storage.
func NewRouter(log *slog.Logger, cfg *config.Config, storage services.PlayerRepository) *gin.Engine {
	jwtGen := jwt.NewGenerator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	m := metrics.New()

	playerService := services.NewPlayerService(log, storage, cfg.Storage.Driver)
	authService := services.NewAuthService(log, cfg.Auth.BotToken, jwtGen)

	playerHandler := handlers.NewPlayerHandler(log, playerService, m)
	authHandler := handlers.NewAuthHandler(log, authService)
	statusHandler := handlers.NewStatusHandler(playerService)

	authMiddleware := middlewares.NewAuthMiddleware(jwtGen, cfg.Auth.Required)

	return routes.InitRoutes(playerHandler, authHandler, statusHandler, authMiddleware, m)
}

// NewStorage opens the store selected by cfg.Driver and prepares its schema.
func NewStorage(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	const op = "app.NewStorage"

	switch cfg.Driver {
	case config.DriverMemory, "":
		return memory.New(), nil
	case config.DriverFile:
		storage, err := file.New(cfg.FileDir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return storage, nil
	case config.DriverPostgres:
		storage, err := postgres.NewPostgres(ctx, cfg.PostgresConn)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := storage.Migrate(ctx); err != nil {
			_ = storage.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return storage, nil
	case config.DriverMongo:
		storage, err := mongo.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := storage.Migrate(ctx); err != nil {
			_ = storage.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return storage, nil
	case config.DriverRedis:
		storage := redis.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
		if err := storage.Ping(ctx); err != nil {
			_ = storage.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return storage, nil
	default:
		return nil, fmt.Errorf("%s: unknown storage driver %q", op, cfg.Driver)
	}
}

// Stop shuts the HTTP server down and releases the storage.
func (a *App) Stop(ctx context.Context) error {
	const op = "app.App.Stop"

	if err := a.HTTPServer.Stop(ctx); err != nil {
		_ = a.storage.Close()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.storage.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
