package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkadlec/facegallery/internal/identity"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and rebuild the similarity index",
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print similarity index statistics",
	RunE:  runIndexStats,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the similarity index from stored records",
	Long: `Reconstruct the similarity index from the database, compacting out
excluded and soft-deleted entries. Useful after large batch exclusions.`,
	RunE: runIndexRebuild,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexStatsCmd)
	indexCmd.AddCommand(indexRebuildCmd)
}

func printStats(stats identity.Stats) {
	fmt.Printf("Records:   %d\n", stats.Records)
	fmt.Printf("Indexed:   %d\n", stats.Indexed)
	fmt.Printf("Excluded:  %d\n", stats.Excluded)
	fmt.Printf("Assigned:  %d\n", stats.Assigned)
	fmt.Printf("Verified:  %d\n", stats.Verified)
	fmt.Printf("Unknown:   %d\n", stats.Unknown)
	fmt.Printf("Dimension: %d\n", stats.Dimension)
	if !stats.RebuiltAt.IsZero() {
		fmt.Printf("Rebuilt:   %s\n", stats.RebuiltAt.Format(time.RFC3339))
	}
}

func runIndexStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	printStats(app.engine.Stats())
	return nil
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	start := time.Now()
	if err := app.engine.Rebuild(ctx); err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}
	fmt.Printf("Index rebuilt in %s\n\n", time.Since(start).Round(time.Millisecond))

	printStats(app.engine.Stats())
	return nil
}
