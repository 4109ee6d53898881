package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/core/domain"
)

var statsJSON bool

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rebuild the base index and empty the delta",
	Long: `Re-embeds every active chunk into a fresh base index and empties the
delta index. Vectors of deleted or superseded chunks are dropped.
When compact.purge_metadata is true, deleted metadata is purged as well.`,
	Args: cobra.NoArgs,
	RunE: runCompact,
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the vector index from metadata",
	Long: `Same as compact. Use it after changing the embedding provider or
model, since vectors of different models cannot be mixed.`,
	Args: cobra.NoArgs,
	RunE: runCompact,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(compactCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(statsCmd)
}

func runCompact(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := requireCore(ctx); err != nil {
		return err
	}

	cmd.Println("Compacting index...")

	var stats *domain.IndexStats
	err := runWithProgress(ctx, cmd, func(ctx context.Context) error {
		var compactErr error
		stats, compactErr = ingestService.Compact(ctx)
		return compactErr
	})
	if err != nil {
		return fmt.Errorf("compact failed: %w", err)
	}

	cmd.Printf("Base index rebuilt with %d vectors (dimension %d).\n", stats.BaseCount, stats.Dimension)
	return nil
}

type statsOutput struct {
	Documents int               `json:"documents"`
	Chunks    int               `json:"chunks"`
	Index     domain.IndexStats `json:"index"`
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := requireCore(ctx); err != nil {
		return err
	}

	stats, err := ingestService.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}
	index, err := ingestService.IndexStats(ctx)
	if err != nil {
		return fmt.Errorf("reading index stats: %w", err)
	}

	if statsJSON {
		data, err := json.MarshalIndent(statsOutput{
			Documents: stats.Documents,
			Chunks:    stats.Chunks,
			Index:     *index,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Documents:   %d\n", stats.Documents)
	cmd.Printf("Chunks:      %d\n", stats.Chunks)
	cmd.Printf("Dimension:   %d\n", index.Dimension)
	cmd.Printf("Base:        %d vectors\n", index.BaseCount)
	cmd.Printf("Delta:       %d vectors\n", index.DeltaCount)
	if !index.BaseBuiltAt.IsZero() {
		cmd.Printf("Compacted:   %s\n", index.BaseBuiltAt.Local().Format("2006-01-02 15:04:05"))
	}
	if index.DeltaCount > 0 && index.DeltaCount >= index.BaseCount {
		cmd.Println()
		cmd.Println("The delta index is as large as the base. Run 'recall compact'.")
	}
	return nil
}
