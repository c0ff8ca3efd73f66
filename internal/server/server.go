// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"

	"github.com/quickres/quickres/internal/clock"
	"github.com/quickres/quickres/internal/config"
	"github.com/quickres/quickres/internal/database"
	"github.com/quickres/quickres/internal/handlers"
	"github.com/quickres/quickres/internal/i18n"
	"github.com/quickres/quickres/internal/repository"
	"github.com/quickres/quickres/internal/services/events"
	"github.com/quickres/quickres/internal/services/notify"
	"github.com/quickres/quickres/internal/services/reservations"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	// Notification transport
	notifier, cleanup, err := buildNotifier(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up notifications: %w", err)
	}
	defer cleanup()

	// Repository and services
	repo := repository.New(db)
	clk := clock.NewSystem()

	eventService := events.NewService(repo, clk, cfg.Reservations.VerificationTTL)
	reservationService := reservations.NewService(repo, clk, notifier,
		reservations.WithVerificationTTL(cfg.Reservations.VerificationTTL),
		reservations.WithTokenAttempts(cfg.Reservations.TokenAttempts),
		reservations.WithLateCheckIn(cfg.Reservations.AllowLateCheckIn),
	)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, eventService, reservationService)

	// Housekeeping sweep for stale pending reservations
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepExpired(sweepCtx, reservationService, cfg.Reservations.ExpirySweepInterval)

	return startWithGracefulShutdown(e, cfg)
}

// buildNotifier selects the notification transport. The returned cleanup
// is a no-op for transports without connections.
func buildNotifier(cfg *config.Config) (notify.Sender, func(), error) {
	switch cfg.Notify.Transport {
	case "smtp":
		sender, err := notify.NewSMTPSender(&cfg.SMTP, cfg.Server.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		return sender, func() {}, nil
	case "amqp":
		sender, err := notify.NewAMQPSender(cfg.Notify.AMQPURL)
		if err != nil {
			return nil, nil, err
		}
		return sender, sender.Close, nil
	case "log", "":
		return notify.NewLogSender(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown notification transport %q", cfg.Notify.Transport)
	}
}

func setupRoutes(e *echo.Echo, eventService *events.Service, reservationService *reservations.Service) {
	h := handlers.New(eventService, reservationService)

	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.GET("/events", h.ListEvents)
	api.POST("/events", h.CreateEvent)
	api.GET("/events/:id", h.GetEvent)
	api.PUT("/events/:id", h.UpdateEvent)

	api.POST("/reservations", h.CreateReservation)
	api.GET("/reservations/:id", h.GetReservation)
	api.DELETE("/reservations/:id", h.CancelReservation)
	api.GET("/verify/:token", h.VerifyReservation)
	api.POST("/scan/:token", h.ScanCheckIn)
}

// sweepExpired periodically cancels pending reservations whose
// verification window has elapsed. Capacity accounting already ignores
// them; the sweep just keeps the rows honest.
func sweepExpired(ctx context.Context, svc *reservations.Service, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := svc.ExpirePending(ctx)
			if err != nil {
				slog.Error("expiry sweep failed", "error", err)
				continue
			}
			if swept > 0 {
				slog.Info("expired pending reservations", "count", swept)
			}
		}
	}
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
