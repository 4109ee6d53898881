package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// progressInterval is how often long operations print progress.
var progressInterval = 500 * time.Millisecond

var syncForce bool

var syncCmd = &cobra.Command{
	Use:   "sync [folder]",
	Short: "Synchronise the index with a folder",
	Long: `Reconciles the index with a folder on disk. New and changed PDF, text
and Markdown files are ingested. Any indexed file missing from the folder
is removed, including files added from elsewhere with 'recall add'.
Hidden files and folders are skipped. Unchanged files are skipped unless
--force is given.

Without a folder, <data-dir>/raw is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVarP(&syncForce, "force", "f", false, "re-ingest unchanged files")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := requireCore(ctx); err != nil {
		return err
	}

	folder, err := defaultFolder(args)
	if err != nil {
		return err
	}

	cmd.Printf("Synchronising %s...\n", folder)

	var report *domain.IngestReport
	err = runWithProgress(ctx, cmd, func(ctx context.Context) error {
		var syncErr error
		report, syncErr = ingestService.Sync(ctx, folder, syncForce)
		return syncErr
	})
	if report != nil {
		printReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return nil
}

// runWithProgress runs fn while displaying progress updates.
func runWithProgress(ctx context.Context, cmd *cobra.Command, fn func(context.Context) error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn(ctx)
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	lastCount := 0
	shown := false
	for {
		select {
		case err := <-errCh:
			if shown {
				cmd.Println()
			}
			return err
		case <-ticker.C:
			status := ingestService.Status()
			if status.Running && status.Processed > lastCount {
				cmd.Printf("\rProcessing... %d/%d", status.Processed, status.Total)
				lastCount = status.Processed
				shown = true
			}
		}
	}
}

// printReport writes a summary of an ingestion pass.
func printReport(cmd *cobra.Command, report *domain.IngestReport) {
	cmd.Printf("Scanned %d, added %d, updated %d, unchanged %d, removed %d (%d new chunks)\n",
		report.Scanned, report.Added, report.Updated, report.Unchanged, report.Deleted, report.NewChunks)

	for _, path := range report.NotFound {
		cmd.Printf("  not indexed: %s\n", path)
	}
	if len(report.Failed) > 0 {
		cmd.Printf("%d file(s) failed:\n", len(report.Failed))
		for _, f := range report.Failed {
			cmd.Printf("  %s: %v\n", f.Path, f.Err)
		}
	}
}
