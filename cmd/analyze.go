package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var analyzeOut string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <user-mix> <reference>",
	Short: "Analyze a mix against a reference and print the result",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg)
		defer a.close()
		if err != nil {
			return err
		}

		id, out, err := a.runner.Run(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if !out.OK() {
			return exitError(out.Err.Kind, out.Err.Message)
		}

		data, err := json.MarshalIndent(out.Result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		if analyzeOut != "" {
			if err := os.WriteFile(analyzeOut, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", analyzeOut, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s written to %s\n", id, analyzeOut)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "write the result JSON to this file instead of stdout")
	rootCmd.AddCommand(analyzeCmd)
}
