// @title                       Task Tracker API
// @version                     1.0
// @description                 Per-user task tracking with JWT authentication.
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	_ "github.com/tasktracker/task-api/docs"
	"github.com/tasktracker/task-api/internal/api"
	"github.com/tasktracker/task-api/internal/api/handler"
	"github.com/tasktracker/task-api/internal/api/metrics"
	"github.com/tasktracker/task-api/internal/core/service"
	"github.com/tasktracker/task-api/internal/infrastructure/db/mongo"
	"github.com/tasktracker/task-api/internal/infrastructure/db/postgres"
	"github.com/tasktracker/task-api/internal/infrastructure/db/redis"
	"github.com/tasktracker/task-api/internal/infrastructure/queue"
	"github.com/tasktracker/task-api/internal/pkg/config"
	"github.com/tasktracker/task-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log := logger.Get()
		log.Error().Err(err).Msg("task api stopped")
		// Config errors happen before the logger exists.
		_, _ = os.Stderr.WriteString("task api: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "task-api",
	})

	// --- Postgres (required) ---
	db, err := postgres.Connect(ctx, postgres.Config{
		DSN:          cfg.Postgres.DSN,
		MaxOpenConns: cfg.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Postgres.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info().Msg("database migrated")

	users := postgres.NewUserRepository(db)
	tasks := postgres.NewTaskRepository(db)
	health := map[string]handler.Pinger{"postgres": handler.PingFunc(db.PingContext)}

	var taskOpts []service.TaskServiceOption

	// --- Redis idempotency (optional) ---
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()

		taskOpts = append(taskOpts, service.WithIdempotency(redis.NewIdempotencyStore(rdb, redis.DefaultIdempotencyTTL)))
		health["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		log.Info().Str("addr", cfg.Redis.Addr).Msg("idempotency store enabled")
	}

	// --- Mongo audit log (optional) ---
	var dispatcher *queue.Dispatcher
	if cfg.Mongo.URI != "" {
		client, mdb, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}()

		events := mongo.NewTaskEventRepository(mdb)
		dispatcher = queue.NewDispatcher(cfg.Audit.Workers, events, logger.Component("audit"),
			queue.WithDropHook(metrics.AuditEventsDroppedTotal.Inc))
		dispatcher.Start(ctx)

		taskOpts = append(taskOpts, service.WithEventLog(dispatcher, events))
		health["mongodb"] = handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx, nil) })
		log.Info().Str("database", cfg.Mongo.Database).Msg("task audit log enabled")
	}

	// --- Services ---
	tokens := service.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTExpire.Duration())
	hasher := service.NewPasswordHasher(cfg.Auth.BcryptCost)
	authService := service.NewAuthService(users, hasher, tokens, logger.Component("auth"))
	taskService := service.NewTaskService(tasks, logger.Component("tasks"), taskOpts...)

	e := api.NewRouter(api.Dependencies{
		Log:    log,
		Env:    cfg.Env,
		Auth:   authService,
		Tasks:  taskService,
		Tokens: tokens,
		Users:  users,
		Health: health,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("task api listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	return shutdown(e, dispatcher, log)
}

func shutdown(e *echo.Echo, dispatcher *queue.Dispatcher, log zerolog.Logger) error {
	log.Info().Msg("shutting down task api")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := e.Shutdown(shutdownCtx)
	if dispatcher != nil {
		dispatcher.Stop()
	}
	return err
}
