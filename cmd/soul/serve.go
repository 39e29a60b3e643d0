package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/motion-soul/backend/internal/app"
	"github.com/zhouzirui/motion-soul/backend/pkg/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var flushLog func()
		ctx, flushLog = setupLogger(ctx, cfg)
		defer flushLog()

		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}

		logger := log.FromCtx(ctx)
		if err := a.Serve(ctx); err != nil {
			logger.Error().Err(err).Msg("server error")
			return err
		}
		logger.Info().Msg("Motion Soul backend stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
