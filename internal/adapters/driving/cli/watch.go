package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/watcher"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [folder]",
	Short: "Keep the index in sync with a folder",
	Long: `Synchronises the folder once, then watches it and re-synchronises
whenever supported files are created, changed or removed. Stop with Ctrl-C.

Without a folder, <data-dir>/raw is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce,
		"quiet period before a sync")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := requireCore(ctx); err != nil {
		return err
	}

	folder, err := defaultFolder(args)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", folder, err)
	}

	cmd.Printf("Synchronising %s...\n", folder)
	report, err := ingestService.Sync(ctx, folder, false)
	if report != nil {
		printReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	opts := []watcher.Option{
		watcher.WithDebounce(watchDebounce),
		watcher.WithOnSync(func(report *domain.IngestReport, err error) {
			if err != nil {
				cmd.PrintErrf("sync failed: %v\n", err)
				return
			}
			if report.Changed() || len(report.Failed) > 0 {
				printReport(cmd, report)
			}
		}),
	}
	if supportsPath != nil {
		opts = append(opts, watcher.WithFilter(supportsPath))
	}

	cmd.Println("Watching for changes. Press Ctrl-C to stop.")
	return watcher.New(folder, ingestService, opts...).Run(ctx)
}
