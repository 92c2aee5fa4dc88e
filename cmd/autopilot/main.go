package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "autopilot",
		Short:         "Autopilot: reference-driven dependency injection",
		Long:          "Autopilot resolves object graphs from references such as Mailer{Main:Singleton}. Use this CLI to inspect references and manifests or to run the application.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newParseCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newServeCmd())
	return root
}
