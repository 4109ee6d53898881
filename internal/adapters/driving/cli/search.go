package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/core/domain"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed documents",
	Long: `Embeds the query and returns the most similar passages from indexed
documents, with file, page and score.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default search.top_k)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := requireCore(ctx); err != nil {
		return err
	}

	query := strings.Join(args, " ")
	results, err := searchService.Search(ctx, query, domain.SearchOptions{TopK: searchLimit})
	if errors.Is(err, domain.ErrIndexNotBuilt) {
		return errors.New("no index yet: run 'recall sync' first")
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	outputSearchText(cmd, results, stylesFor(cmd.OutOrStdout()))
	return nil
}

func outputSearchJSON(cmd *cobra.Command, results []domain.Evidence) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchText(cmd *cobra.Command, results []domain.Evidence, st outputStyles) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	for i := range results {
		ev := &results[i]

		title := ev.FileName
		if ev.Page != nil {
			title = fmt.Sprintf("%s, page %d", title, *ev.Page)
		}

		// Format: [N] file, page P (score)
		cmd.Printf("%s %s %s\n",
			st.Rank.Render(fmt.Sprintf("[%d]", i+1)),
			st.Title.Render(title),
			st.Score.Render(fmt.Sprintf("(%.3f)", ev.Score)))
		cmd.Printf("    %s\n", st.Path.Render(ev.Path))
		cmd.Printf("    %s\n", st.Snippet.Render(ev.Snippet))
		cmd.Println()
	}
}
