// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/danielhkuo/applicant-pipeline/app"
	"github.com/danielhkuo/applicant-pipeline/cliparse"
	"github.com/danielhkuo/applicant-pipeline/db"
	"github.com/danielhkuo/applicant-pipeline/logging"
	"github.com/danielhkuo/applicant-pipeline/middleware"
	"github.com/danielhkuo/applicant-pipeline/notify"
	"github.com/danielhkuo/applicant-pipeline/router"
	"github.com/danielhkuo/applicant-pipeline/scheduler"
)

func main() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "type", cfg.DatabaseType, "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	svc := app.New(dbConn, app.Options{
		Notifier:     notify.LogNotifier{},
		PurgeTimeout: cfg.PurgeTimeout,
	})

	server := http.Server{
		Handler:           middleware.CORS(router.NewRouter(svc, cfg)),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	runner := scheduler.NewRunner(svc.Sweeper, svc.Purger, cfg.SweepInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		runner.Run(ctx)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown", "error", err)
		}
	}()

	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed")
	}

	stop()
	// Let an in-flight sweep finish before the database closes
	wg.Wait()
}
