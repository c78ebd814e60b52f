package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/jaminalder/tictactoe-cpu/internal/config"
	"github.com/jaminalder/tictactoe-cpu/internal/search"
	"github.com/jaminalder/tictactoe-cpu/internal/term"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse("tictactoe-term", os.Args[1:], os.Getenv)
	if err != nil {
		return err
	}
	// The screen owns stdout, so logs go to stderr.
	logger := cfg.Logger(os.Stderr)

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := search.New(cfg.Rand(), logger.With("component", "search"))
	a := term.NewApp(screen, engine, cfg.MatchOptions(), logger)
	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
