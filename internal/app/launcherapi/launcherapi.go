// Package launcherapi собирает сервис границы лаунчера: хранилище
// пользователей, набор сессий и HTTP-сервер за общим секретом API.
package launcherapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/ravensoft/license-server/internal/config"
	"github.com/ravensoft/license-server/internal/lib/sl"
	"github.com/ravensoft/license-server/internal/sessions"
	sessionservice "github.com/ravensoft/license-server/internal/services/sessions"
	"github.com/ravensoft/license-server/internal/storage/repository"
)

// App — собранный сервис API лаунчера.
type App struct {
	server        *http.Server
	logger        *slog.Logger
	db            *repository.Storage
	sessions      *sessionservice.Service
	sweepInterval time.Duration
}

// New инициализирует все зависимости и возвращает готовое приложение.
// Миграции применяет панель магазина, здесь схема только проверяется.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = repository.CheckDatabaseReady(db); err != nil {
		return nil, err
	}

	// Без Redis сессии живут в памяти процесса. Для одного экземпляра
	// этого достаточно, перезапуск просто разлогинит лаунчеры.
	var store sessions.Store
	if cfg.AddressRedis != "" {
		store, err = sessions.NewRedisStore(ctx, cfg.RedisConnection)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("redis address is empty, using in-memory session store")
		store = sessions.NewMemoryStore()
	}

	sessionService := sessionservice.New(db, store, cfg.SessionTTL, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, sessionService, cfg.Launcher)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:        srv,
		logger:        logger,
		db:            db,
		sessions:      sessionService,
		sweepInterval: cfg.SweepInterval,
	}, nil
}

// Run запускает фоновую уборку сессий и HTTP-сервер,
// останавливая их по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	go a.sessions.Sweep(ctx, a.sweepInterval)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if cerr := a.db.DB.Close(); cerr != nil {
			a.logger.Warn("failed to close database", sl.Err(cerr))
		}
		return err
	}
}
