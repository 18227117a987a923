package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/webexpert/event-ticketing/internal/config"
	"github.com/webexpert/event-ticketing/internal/database"
	"github.com/webexpert/event-ticketing/internal/handler"
	"github.com/webexpert/event-ticketing/internal/middleware"
	"github.com/webexpert/event-ticketing/internal/queue"
	"github.com/webexpert/event-ticketing/internal/repository"
	"github.com/webexpert/event-ticketing/internal/router"
	"github.com/webexpert/event-ticketing/internal/service"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			logger.Error("schema migration failed", "err", err)
			os.Exit(1)
		}
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	tickets := repository.NewTicketRepo(db)
	bookings := repository.NewBookingRepo(db)
	favorites := repository.NewFavoriteRepo(db)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if u, err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost); err != nil {
			logger.Error("admin seed failed", "email", cfg.AdminEmail, "err", err)
		} else {
			logger.Info("admin account ready", "user_id", u.ID, "email", u.Email)
		}
	}

	rdb := config.NewRedisClient(ctx)
	if rdb != nil {
		defer rdb.Close()
	}

	publisher := queue.NewPublisher(cfg.RabbitMQURL, logger)
	consumer := &queue.Consumer{URL: cfg.RabbitMQURL, Log: logger}
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("booking consumer stopped", "err", err)
		}
	}()

	reservations := service.NewReservationService(tickets, bookings, publisher, logger)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method, "uri", v.URI, "status", v.Status,
				"latency_ms", v.Latency.Milliseconds(), "request_id", v.RequestID, "ip", v.RemoteIP,
			}
			if v.Error != nil {
				attrs = append(attrs, "err", v.Error)
			}
			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", slog.Group("http", attrs...))
			return nil
		},
	}))
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, &handler.Health{DB: db, Redis: rdb})
	api := e.Group(router.APIPrefix)
	router.RegisterAuth(api, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	ticketHandler := handler.NewTicketHandler(events, tickets, reservations)
	router.RegisterCatalog(api, handler.NewEventHandler(events, tickets), ticketHandler, cfg.JWTSecret)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger, nil)
	router.RegisterCustomer(api, ticketHandler, handler.NewBookingHandler(bookings, reservations),
		handler.NewFavoriteHandler(events, tickets, favorites), cfg.JWTSecret, limiter)

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
	reservations.Wait()
	logger.Info("server shutdown complete")
}
