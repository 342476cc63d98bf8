package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mixlens/core/watch"
)

var (
	watchDir    string
	watchSettle time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Analyze <name>_user.<ext> / <name>_ref.<ext> pairs dropped into a folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(watchDir, 0755); err != nil {
			return err
		}
		a, err := buildApp(cfg)
		defer a.close()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a.runner.Start(ctx)
		defer a.runner.Close()

		return watch.NewInbox(watchDir, watchSettle, a.runner.Submit).Run(ctx)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "inbox", "directory to watch")
	watchCmd.Flags().DurationVar(&watchSettle, "settle", time.Second, "how long a file must stay unchanged before it is used")
	rootCmd.AddCommand(watchCmd)
}
