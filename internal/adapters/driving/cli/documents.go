package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/core/domain"
)

var addForce bool

var addCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Ingest files or folders",
	Long: `Ingests the given files. Folders are expanded recursively. Unlike sync,
add never removes anything from the index.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var deleteCmd = &cobra.Command{
	Use:     "delete <path>...",
	Aliases: []string{"rm"},
	Short:   "Remove files from the index",
	Long: `Removes the given files, or every indexed file under a folder, from
search results. Their vectors stay in the index until the next compact.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func init() {
	addCmd.Flags().BoolVarP(&addForce, "force", "f", false, "re-ingest unchanged files")
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := requireCore(ctx); err != nil {
		return err
	}

	var report *domain.IngestReport
	err := runWithProgress(ctx, cmd, func(ctx context.Context) error {
		var addErr error
		report, addErr = ingestService.Add(ctx, args, addForce)
		return addErr
	})
	if report != nil {
		printReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("add failed: %w", err)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := requireCore(ctx); err != nil {
		return err
	}

	report, err := ingestService.Delete(ctx, args)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	cmd.Printf("Removed %d document(s).\n", report.Deleted)
	for _, path := range report.NotFound {
		cmd.Printf("  not indexed: %s\n", path)
	}
	return nil
}
