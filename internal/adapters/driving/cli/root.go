// Package cli implements the recall command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/logger"
)

// EnvDataDir overrides the default data directory.
const EnvDataDir = "RECALL_DATA_DIR"

// RawDirName is the folder under the data directory that sync and watch
// use when no folder is given.
const RawDirName = "raw"

// Core bundles the services that need the metadata store, the vector
// indices and an embedding provider.
type Core struct {
	Ingest driving.IngestService
	Search driving.SearchService

	// Supports reports whether a path has a loader.
	Supports func(path string) bool

	// Close releases the stores and the embedding provider.
	Close func() error
}

// Hooks connect the commands to the application wiring. Each hook
// receives the resolved data directory.
type Hooks struct {
	OpenSettings func(dataDir string) (driving.SettingsService, error)
	OpenCore     func(ctx context.Context, dataDir string) (*Core, error)
}

var (
	version = "dev"

	dataDir string
	verbose bool

	hooks Hooks

	// Services, opened lazily by the commands that need them.
	settingsService driving.SettingsService
	ingestService   driving.IngestService
	searchService   driving.SearchService
	supportsPath    func(string) bool
	closeCore       func() error
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Local semantic search over your documents",
	Long: `recall indexes PDF, text and Markdown files from a local folder and
answers natural-language queries with ranked evidence: the matching
passage, its file and its page.

New and changed files are embedded into a small delta index, so updates
are cheap. Run 'recall compact' from time to time to fold the delta into
the base index and drop deleted content.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "",
		fmt.Sprintf("data directory (default $%s or ~/.recall)", EnvDataDir))
}

// Execute runs the root command.
func Execute(ctx context.Context, v string, h Hooks) error {
	if v != "" {
		version = v
	}
	hooks = h
	defer closeServices()

	return rootCmd.ExecuteContext(ctx)
}

// resolveDataDir returns the data directory from the flag, the
// environment or the home directory, in that order.
func resolveDataDir() (string, error) {
	if dataDir != "" {
		return filepath.Abs(dataDir)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".recall"), nil
}

// defaultFolder returns the folder argument or <data>/raw.
func defaultFolder(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	dir, err := resolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, RawDirName), nil
}

func requireSettings() error {
	if settingsService != nil {
		return nil
	}
	if hooks.OpenSettings == nil {
		return errors.New("settings service not configured")
	}
	dir, err := resolveDataDir()
	if err != nil {
		return err
	}
	svc, err := hooks.OpenSettings(dir)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	settingsService = svc
	return nil
}

func requireCore(ctx context.Context) error {
	if ingestService != nil && searchService != nil {
		return nil
	}
	if hooks.OpenCore == nil {
		return errors.New("ingest and search services not configured")
	}
	dir, err := resolveDataDir()
	if err != nil {
		return err
	}
	core, err := hooks.OpenCore(ctx, dir)
	if err != nil {
		return err
	}
	ingestService = core.Ingest
	searchService = core.Search
	supportsPath = core.Supports
	closeCore = core.Close
	return nil
}

func closeServices() {
	if closeCore == nil {
		return
	}
	if err := closeCore(); err != nil {
		logger.Warn("Closing stores: %v", err)
	}
	closeCore = nil
}
