// Package storefront собирает сервис панели магазина: хранилище,
// миграции, уведомления и HTTP-сервер с маршрутами операторов.
package storefront

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/ravensoft/license-server/internal/config"
	"github.com/ravensoft/license-server/internal/lib/jwt"
	"github.com/ravensoft/license-server/internal/lib/sl"
	"github.com/ravensoft/license-server/internal/migrations"
	keyservice "github.com/ravensoft/license-server/internal/services/keys"
	paymentservice "github.com/ravensoft/license-server/internal/services/payments"
	userservice "github.com/ravensoft/license-server/internal/services/users"
	"github.com/ravensoft/license-server/internal/storage/repository"

	"github.com/ravensoft/license-server/internal/notifier"
)

// App — собранный сервис панели магазина.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *repository.Storage
	amqpConn *amqp.Connection
}

// New инициализирует все зависимости и возвращает готовое приложение.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	// Пустой URL выключает публикацию уведомлений, сервисы это учитывают.
	var (
		amqpConn *amqp.Connection
		notify   *notifier.Notifier
	)
	if cfg.URLRabbit != "" {
		conn, ch, err := notifier.Connect(cfg.URLRabbit)
		if err != nil {
			return nil, err
		}
		notify, err = notifier.New(ch, cfg.NotificationQueue)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		amqpConn = conn
	} else {
		logger.Warn("rabbitmq url is empty, notifications disabled")
	}

	jwtMaker := jwt.NewMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	userService := userservice.New(db, notifierOrNil(notify), logger)
	keyService := keyservice.New(db, notifierOrNil(notify), logger)
	paymentService := paymentservice.New(db, notifierOrNil(notify), logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, userService, keyService, paymentService, jwtMaker, cfg.Operators)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		amqpConn: amqpConn,
	}, nil
}

// notifierOrNil прячет типизированный nil за интерфейсом сервисов.
func notifierOrNil(n *notifier.Notifier) userservice.Notifier {
	if n == nil {
		return nil
	}
	return n
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
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
		if a.amqpConn != nil {
			if cerr := a.amqpConn.Close(); cerr != nil {
				a.logger.Warn("failed to close rabbitmq connection", sl.Err(cerr))
			}
		}
		if cerr := a.db.DB.Close(); cerr != nil {
			a.logger.Warn("failed to close database", sl.Err(cerr))
		}
		return err
	}
}
