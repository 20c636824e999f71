package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shelfsync/shelfsync/internal/platform"
	"github.com/shelfsync/shelfsync/pkg/catalog"
	"github.com/shelfsync/shelfsync/pkg/progress"
)

type scanFlagValues struct {
	Extensions []string
}

var scanFlags scanFlagValues

// NewScanCommand creates the scan command
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <folder>",
		Short: "Index a folder into the catalog",
		Long: `Walk a folder, hash every matching file, and store the results in
the catalog. Records for files that no longer exist are dropped.`,
		Args: cobra.ExactArgs(1),
		RunE: runScan,
	}

	cmd.Flags().StringSliceVar(&scanFlags.Extensions, "ext", nil, "file extensions to index (default from config)")

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	root, err := platform.ExpandPath(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if len(scanFlags.Extensions) > 0 {
		cfg.Scan.Extensions = scanFlags.Extensions
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	scanner := newScanner(cfg, store, logger)

	reporter, finish := newProgressReporter(cfg)
	em := progress.NewEmitter(reporter, progress.Throttle{
		MinInterval: cfg.Progress.Interval(),
		MinItems:    cfg.Progress.MinItems,
	})
	em.Phase(progress.PhaseScan, root)

	indexed, itemErrs, err := scanner.IndexTree(ctx, root, func(path string, rec *catalog.FileRecord) {
		if rec != nil {
			em.FileScanned(rec.Name())
		}
	})
	em.Done()
	finish()
	if err != nil {
		if catalog.IsPathNotFound(err) {
			return err
		}
		return fmt.Errorf("scan failed: %w", err)
	}

	fmt.Fprintf(stdout(), "Indexed %d files into the catalog.\n", indexed)
	for _, itemErr := range itemErrs {
		fmt.Fprintf(stdout(), "  error: %v\n", itemErr)
	}
	if len(itemErrs) > 0 {
		return fmt.Errorf("%d files could not be indexed", len(itemErrs))
	}
	return nil
}
