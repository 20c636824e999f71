package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shelfsync/shelfsync/internal/platform"
	"github.com/shelfsync/shelfsync/pkg/catalog"
	"github.com/shelfsync/shelfsync/pkg/config"
	"github.com/shelfsync/shelfsync/pkg/logging"
	"github.com/shelfsync/shelfsync/pkg/output"
	"github.com/shelfsync/shelfsync/pkg/progress"
)

// loadConfig loads configuration from the --config file, or the default
// location when none is given
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// newLogger builds the logger described by the config. --verbose forces
// debug level.
func newLogger(cfg *config.Config) (logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NewNullLogger(), nil
	}
	level := logging.ParseLevel(cfg.Logging.Level)
	if globalFlags.Verbose {
		level = logging.DebugLevel
	}
	format := logging.Format(cfg.Logging.Format)
	if cfg.Logging.File == "" {
		return logging.NewWriterLogger(os.Stderr, format, level), nil
	}
	return logging.NewFileLogger(cfg.Logging.File, format, level)
}

// openStore opens the catalog database selected by --catalog or config
func openStore(cfg *config.Config) (catalog.Store, error) {
	path := globalFlags.Catalog
	if path == "" {
		path = cfg.Catalog.Path
	}
	if path == "" {
		def, err := config.DefaultCatalogPath()
		if err != nil {
			return nil, err
		}
		path = def
	}
	store, err := catalog.OpenBolt(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", path, err)
	}
	return store, nil
}

func newScanner(cfg *config.Config, store catalog.Store, logger logging.Logger) *catalog.Scanner {
	return catalog.NewScanner(catalog.ScannerConfig{
		Store:      store,
		Extensions: cfg.Scan.Extensions,
		ChunkSize:  cfg.Catalog.ChunkSize,
		Workers:    cfg.Scan.Workers,
		Logger:     logger,
	})
}

// newProgressReporter returns a live bar reporter when the terminal and
// config allow one. The returned finish func is a no-op otherwise.
func newProgressReporter(cfg *config.Config) (progress.Reporter, func()) {
	if globalFlags.Quiet || !cfg.Output.Progress || !output.IsTerminal(os.Stderr) {
		return progress.Func(func(progress.Snapshot) {}), func() {}
	}
	bar := output.NewBarReporter(os.Stderr)
	return bar, bar.Finish
}

// resolveTreePair expands and validates the two tree roots given on the
// command line
func resolveTreePair(a, b string) (string, string, error) {
	treeA, err := platform.ExpandPath(a)
	if err != nil {
		return "", "", err
	}
	treeB, err := platform.ExpandPath(b)
	if err != nil {
		return "", "", err
	}

	for _, tree := range []string{treeA, treeB} {
		info, err := os.Stat(tree)
		if os.IsNotExist(err) {
			return "", "", fmt.Errorf("path does not exist: %s", tree)
		}
		if err != nil {
			return "", "", fmt.Errorf("failed to access %s: %w", tree, err)
		}
		if !info.IsDir() {
			return "", "", fmt.Errorf("path is not a directory: %s", tree)
		}
	}

	if platform.SamePath(treeA, treeB) {
		return "", "", fmt.Errorf("the two folders cannot be the same: %s", treeA)
	}
	if strings.HasPrefix(treeB, treeA+string(os.PathSeparator)) ||
		strings.HasPrefix(treeA, treeB+string(os.PathSeparator)) {
		return "", "", fmt.Errorf("one folder cannot be inside the other")
	}

	return treeA, treeB, nil
}

// stdout returns the command's output writer, honoring --quiet
func stdout() io.Writer {
	if globalFlags.Quiet {
		return io.Discard
	}
	return os.Stdout
}
