package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mixlens/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP API",
	Long:  `Start the HTTP API that accepts uploads, runs analyses in the background and serves results.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg)
		defer a.close()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a.runner.Start(ctx)
		defer a.runner.Close()

		return server.New(cfg, a.deps).ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
