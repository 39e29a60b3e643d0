package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/motion-soul/backend/internal/app"
	"github.com/zhouzirui/motion-soul/backend/internal/config"
	"github.com/zhouzirui/motion-soul/backend/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger := log.New(os.Stderr)
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	var flushLog func()
	ctx, flushLog = log.NewContextWithLogger(ctx, cfg.Log.Level)
	defer flushLog()

	logger := log.FromCtx(ctx)
	if envErr != nil {
		logger.Warn().Err(envErr).Msg("failed to load .env file, continuing with system environment variables only")
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		fatal(logger, err, flushLog)
	}

	if err := a.Serve(ctx); err != nil {
		fatal(logger, err, flushLog)
	}
	logger.Info().Msg("Motion Soul backend stopped")
}

func fatal(logger *zerolog.Logger, err error, flush func()) {
	logger.Error().Err(err).Msg("server error")
	flush()
	os.Exit(1)
}
