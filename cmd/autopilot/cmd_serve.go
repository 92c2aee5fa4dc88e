package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-autopilot/framework/app"
)

// autopilot serve: boot the application and serve HTTP until SIGINT/SIGTERM.
func newServeCmd() *cobra.Command {
	var envFiles []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.New(envFiles...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return application.Run(ctx)
		},
	}
	cmd.Flags().StringSliceVar(&envFiles, "env", nil, ".env files to load (default .env)")
	return cmd
}
