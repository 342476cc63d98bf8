package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mixlens/cache"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the Redis job store connection",
	Long:  `Connect to Redis with the configured settings and run a write/read/delete round trip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Redis: %s, DB: %d\n", cfg.RedisAddr(), cfg.RedisDB)

		if err := cache.ConnectRedis(cfg); err != nil {
			return err
		}
		defer cache.CloseRedis()
		fmt.Fprintln(out, "Connected.")

		if err := cache.CheckRedis(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(out, "Read/write check passed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
