package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"plantdoctor/internal/app"
)

var embedLimit int

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Diagnosis cache maintenance (cleanup, embed)",
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired cache entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			deleted, err := a.Diagnosis.CleanupCache(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Removed %d expired cache entries\n", deleted)
			return nil
		})
	},
}

var cacheEmbedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Compute embeddings for cache entries that have none",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			resp, err := a.Backfill.Run(ctx, embedLimit)
			if err != nil {
				return err
			}
			fmt.Printf("Embeddings: %d updated, %d failed\n", resp.Success, resp.Failed)
			for _, e := range resp.Errors {
				fmt.Printf("  - %s\n", e)
			}
			return nil
		})
	},
}

func init() {
	cacheEmbedCmd.Flags().IntVar(&embedLimit, "limit", 100, "Maximum entries to embed")
}
