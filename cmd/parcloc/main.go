// Package main starts the HTTP server of the parc-loc service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/mlebreton/parcloc-system/internal/calendar"
	"github.com/mlebreton/parcloc-system/internal/config"
	"github.com/mlebreton/parcloc-system/internal/handler"
	"github.com/mlebreton/parcloc-system/internal/middleware"
	"github.com/mlebreton/parcloc-system/internal/repository"
	"github.com/mlebreton/parcloc-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	svc := service.NewService(repo, calendar.FrenchHolidays(), logger)
	defer svc.Close()

	if err := svc.StartVGPReminders(cfg.VGPSchedule); err != nil {
		sugar.Fatalw("vgp reminder scheduling error", "error", err.Error())
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(cfg.AccessPassword), bcrypt.DefaultCost)
	if err != nil {
		sugar.Fatalw("password hashing error", "error", err.Error())
	}

	session := middleware.NewSessionMiddleware(cfg.SessionSecret)
	h := handler.NewHandler(svc, logger, session, passwordHash)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting parc-loc server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
