package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tablekit/tablekit/server"
	"github.com/tablekit/tablekit/server/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Tablekit server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := config.SetupLogger(cfg)
		if err != nil {
			return err
		}

		srv, err := server.New(cfg, logger)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create server")
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		go func() {
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			<-sigChan
			logger.Info().Msg("Shutdown signal received")
			cancel()
		}()

		if err := srv.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("Server failed to start")
			return err
		}

		<-ctx.Done()
		return srv.Shutdown()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
