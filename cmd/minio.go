package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mixlens/storage"
)

var minioPrefix string

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "List job artifacts stored in MinIO",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "MinIO: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		client, err := storage.NewMinioClient(cfg)
		if err != nil {
			return err
		}
		objects, stats, err := storage.NewArtifactStore(client, cfg.MinioBucket).List(cmd.Context(), minioPrefix)
		if err != nil {
			return err
		}

		for _, obj := range objects {
			fmt.Fprintf(out, "  %s  %s  %s\n",
				obj.LastModified.Format("2006-01-02 15:04:05"), storage.FormatSize(obj.Size), obj.Key)
		}
		fmt.Fprintf(out, "%d objects, %s total\n", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
		return nil
	},
}

func init() {
	minioCmd.Flags().StringVar(&minioPrefix, "prefix", storage.JobPrefix, "object prefix to list")
	rootCmd.AddCommand(minioCmd)
}
