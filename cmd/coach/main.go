// Command coach is the terminal client for the parenting coach. It keeps
// conversations in a local data directory and talks to a coachd gateway.
//
// Usage:
//
//	coach [flags]
//
// Flags override the environment (and .env):
//
//	-api string     Gateway base URL (COACH_API_BASE, default http://localhost:3000)
//	-data string    Data directory (COACH_DATA_DIR, default ~/.coach)
//	-store string   Storage backend: json, sqlite (COACH_STORE, default json)
//	-topic string   Start with a topic: tantrums, mealtime, bedtime, screen_time
//	-pro            Skip the free question limit (COACH_PRO)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fwojciec/coach"
	bt "github.com/fwojciec/coach/bubbletea"
	"github.com/fwojciec/coach/config"
	"github.com/fwojciec/coach/gateway"
	coachjson "github.com/fwojciec/coach/json"
	"github.com/fwojciec/coach/logger"
	"github.com/fwojciec/coach/orchestrator"
	"github.com/fwojciec/coach/sqlite"
	"github.com/fwojciec/coach/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "coach: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	flag.StringVar(&cfg.APIBase, "api", cfg.APIBase, "Gateway base URL")
	flag.StringVar(&cfg.DataDir, "data", cfg.DataDir, "Data directory")
	flag.StringVar(&cfg.Store, "store", cfg.Store, "Storage backend: json, sqlite")
	flag.BoolVar(&cfg.Pro, "pro", cfg.Pro, "Skip the free question limit")
	topic := flag.String("topic", "", "Start with a topic prompt")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// The terminal belongs to the TUI, so logs go to a file.
	logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "coach.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Output: logFile, Service: "coach"})

	callerID, err := cfg.EnsureCallerID()
	if err != nil {
		return err
	}

	kv, closeKV, err := openKV(cfg)
	if err != nil {
		return err
	}
	defer closeKV()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := store.New(kv, store.WithLogger(log))
	gw := gateway.NewClient(cfg.APIBase,
		gateway.WithCallerID(callerID),
		gateway.WithTimeout(cfg.Timeout),
	)
	pro := cfg.Pro
	o := orchestrator.New(s, gw,
		orchestrator.WithEntitlement(func() bool { return pro }),
		orchestrator.WithLogger(log),
	)

	log.Info().Str("api", cfg.APIBase).Str("store", cfg.Store).Msg("client starting")
	m := bt.New(o, coach.DefaultTheme(), bt.WithContext(ctx), bt.WithTopic(*topic))
	if err := bt.Run(ctx, m); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}

// openKV opens the configured storage backend under the data directory.
func openKV(cfg *config.Client) (coach.KV, func(), error) {
	switch cfg.Store {
	case "sqlite":
		kv, err := sqlite.Open(filepath.Join(cfg.DataDir, "coach.db"))
		if err != nil {
			return nil, nil, err
		}
		return kv, func() { _ = kv.Close() }, nil
	default:
		return coachjson.NewDir(filepath.Join(cfg.DataDir, "store")), func() {}, nil
	}
}
