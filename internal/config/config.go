// Package config reads settings shared by the web and terminal binaries.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jaminalder/tictactoe-cpu/internal/match"
)

// ErrInvalidLevel is returned for an unknown log level.
var ErrInvalidLevel = errors.New("invalid log level")

// Config holds the settings of one process.
type Config struct {
	Addr          string
	LogLevel      string
	ComputerDelay time.Duration
	MessageDelay  time.Duration
	AutoAdvance   bool
	// Seed fixes the engine's opening choice; zero picks a random seed.
	Seed       uint64
	SessionTTL time.Duration
}

// Default returns the settings used when nothing is given.
func Default() Config {
	opts := match.DefaultOptions()
	return Config{
		Addr:          ":8080",
		LogLevel:      "info",
		ComputerDelay: opts.ComputerDelay,
		MessageDelay:  opts.MessageDelay,
		AutoAdvance:   opts.AutoAdvance,
		SessionTTL:    30 * time.Minute,
	}
}

// Parse reads flags from args. ADDR and LOG_LEVEL from getenv replace the
// defaults; explicit flags win over both.
func Parse(name string, args []string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if getenv != nil {
		if v := strings.TrimSpace(getenv("ADDR")); v != "" {
			cfg.Addr = v
		}
		if v := strings.TrimSpace(getenv("LOG_LEVEL")); v != "" {
			cfg.LogLevel = v
		}
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug|info|warn|error")
	fs.DurationVar(&cfg.ComputerDelay, "computer-delay", cfg.ComputerDelay, "pause before the computer moves")
	fs.DurationVar(&cfg.MessageDelay, "message-delay", cfg.MessageDelay, "how long the end-of-round message stays up")
	fs.BoolVar(&cfg.AutoAdvance, "auto-advance", cfg.AutoAdvance, "start the next round when the message clears")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "engine seed, 0 for random")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "drop web sessions idle this long")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}
	if cfg.ComputerDelay < 0 || cfg.MessageDelay < 0 {
		return Config{}, errors.New("delays must not be negative")
	}
	return cfg, nil
}

// ParseLevel maps a level name onto slog.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// Logger builds a text logger at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	lvl, _ := ParseLevel(c.LogLevel)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// MatchOptions returns the controller timing settings.
func (c Config) MatchOptions() match.Options {
	return match.Options{
		ComputerDelay: c.ComputerDelay,
		MessageDelay:  c.MessageDelay,
		AutoAdvance:   c.AutoAdvance,
	}
}

// Rand returns the engine's random source, seeded when Seed is set.
func (c Config) Rand() *rand.Rand {
	if c.Seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(c.Seed, c.Seed))
}
