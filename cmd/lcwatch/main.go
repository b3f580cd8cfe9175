// Package main is the entry point for the lcwatch CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"lcwatch/internal/cli"
	"lcwatch/internal/commands"
	"lcwatch/internal/config"
	"lcwatch/internal/engine"
	"lcwatch/internal/lcapi"
	"lcwatch/internal/service"
)

func main() {
	// Optional .env for local overrides; missing file is fine.
	_ = godotenv.Load()

	logger := newLogger(os.Args[1:])
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		// Friendlier than letting the first request fail.
		if !cfg.HasCredentials() {
			return nil, &lcapi.AuthError{Reason: "no client credentials configured (run: lcwatch login)"}
		}
		if !cfg.HasToken("") {
			return nil, &lcapi.AuthError{Reason: "not logged in (run: lcwatch login)"}
		}
		return engine.New(cfg, logger)
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

// newLogger builds the process logger. Debug runs get the development
// config; everything else logs warnings and above so CLI output stays
// clean.
func newLogger(args []string) *zap.Logger {
	debug := false
	for _, a := range args {
		if a == "--debug" || a == "-debug" {
			debug = true
		}
	}
	if debug {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger
		}
		return zap.NewNop()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
