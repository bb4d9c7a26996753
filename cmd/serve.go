package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tutor over HTTP with a live websocket view",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := server.ConfigFromEnv()
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid server config: %w", err)
		}

		rt, err := newRuntime(ctx, cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		opts := server.Options{Topics: rt.topics, Logger: logger}
		if command := os.Getenv("TUTORLY_RECORD_COMMAND"); command != "" {
			src, err := audioSource("")
			if err != nil {
				return err
			}
			opts.Audio = src
		}

		logger.Info("starting tutor server",
			zap.String("addr", cfg.Addr),
			zap.String("provider", rt.llmConfig.Provider),
			zap.Bool("recording", opts.Audio != nil))
		return server.New(cfg, rt.tutor, opts).ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides TUTORLY_ADDR)")
}
