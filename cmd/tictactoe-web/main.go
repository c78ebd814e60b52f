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

	"github.com/jaminalder/tictactoe-cpu/internal/app"
	"github.com/jaminalder/tictactoe-cpu/internal/config"
	"github.com/jaminalder/tictactoe-cpu/internal/search"
	"github.com/jaminalder/tictactoe-cpu/internal/web"
)

func main() {
	cfg, err := config.Parse("tictactoe-web", os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := cfg.Logger(os.Stdout)

	engine := search.New(cfg.Rand(), logger.With("component", "search"))
	svc := app.NewService(engine, cfg.MatchOptions(), logger)
	defer svc.Close()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           web.NewServer(svc, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	go sweep(sigCtx, svc, cfg.SessionTTL)

	logger.Info("listening", "addr", cfg.Addr, "auto_advance", cfg.AutoAdvance, "session_ttl", cfg.SessionTTL)
	var runErr error
	select {
	case <-sigCtx.Done():
		logger.Info("shutdown signal received")
	case err, ok := <-serverErrCh:
		if ok {
			runErr = err
			logger.Error("server error", "err", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("graceful shutdown failed", "err", err)
		_ = server.Close()
	}
	if runErr != nil {
		svc.Close()
		os.Exit(1)
	}
}

// sweep drops idle sessions until ctx ends.
func sweep(ctx context.Context, svc *app.Service, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.Sweep(ttl)
		}
	}
}
