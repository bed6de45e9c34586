package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"

	"github.com/MarioJames/super-lotto/api/routes"
	"github.com/MarioJames/super-lotto/internal/config"
	"github.com/MarioJames/super-lotto/internal/handlers"
	"github.com/MarioJames/super-lotto/internal/logging"
	"github.com/MarioJames/super-lotto/internal/lottery"
	"github.com/MarioJames/super-lotto/internal/repositories"
	"github.com/MarioJames/super-lotto/internal/repositories/bolt"
	mongorepo "github.com/MarioJames/super-lotto/internal/repositories/mongodb"
	"github.com/MarioJames/super-lotto/internal/services"
	"github.com/MarioJames/super-lotto/pkg/jwt"
	"github.com/MarioJames/super-lotto/pkg/mongodb"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open storage", "error", err, "driver", cfg.Storage.Driver)
		os.Exit(1)
	}
	defer func() {
		if err := repos.Close(context.Background()); err != nil {
			slog.Error("Error closing storage", "error", err)
		}
	}()

	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TokenTTL())
	authService := services.NewAuthService(repos.AdminUsers, tokens)
	if cfg.Auth.Enabled && cfg.Auth.AdminEmail != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			slog.Error("Failed to bootstrap admin", "error", err)
			os.Exit(1)
		}
	}
	activityService := services.NewActivityService(repos, cfg.Lottery.DefaultAnimationDurationMs)
	drawService := services.NewDrawService(repos.Draws, lottery.NewSelector(nil))

	router := routes.SetupRouter(cfg, routes.HandlerDependencies{
		AuthHandler:     handlers.NewAuthHandler(authService),
		ActivityHandler: handlers.NewActivityHandler(activityService),
		DrawHandler:     handlers.NewDrawHandler(drawService),
		Tokens:          tokens,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Server.Port, "storage", cfg.Storage.Driver, "auth", cfg.Auth.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	// in-flight draws finish inside this budget
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	slog.Info("Server exiting")
}

func openRepositories(ctx context.Context, cfg *config.Config) (repositories.Repositories, error) {
	switch cfg.Storage.Driver {
	case config.DriverMongoDB:
		timeout := time.Duration(cfg.MongoDB.ConnectTimeoutSeconds) * time.Second
		client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, timeout)
		if err != nil {
			return repositories.Repositories{}, err
		}
		db := client.Database(cfg.MongoDB.Database)
		if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return repositories.Repositories{}, err
		}
		slog.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)
		return mongorepo.NewRepositories(db), nil
	case config.DriverBolt:
		store, err := bolt.Open(cfg.Bolt.Path)
		if err != nil {
			return repositories.Repositories{}, err
		}
		slog.Info("Opened bolt store", "path", cfg.Bolt.Path)
		return store.Repositories(), nil
	}
	return repositories.Repositories{}, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
