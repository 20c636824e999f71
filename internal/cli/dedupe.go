package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shelfsync/shelfsync/internal/platform"
	"github.com/shelfsync/shelfsync/pkg/audit"
	"github.com/shelfsync/shelfsync/pkg/dedupe"
	"github.com/shelfsync/shelfsync/pkg/output"
	"github.com/shelfsync/shelfsync/pkg/progress"
	"github.com/shelfsync/shelfsync/pkg/reconcile"
)

type dedupeFlagValues struct {
	Output       string
	KeepLocation string
	Scope        string
	Apply        bool
}

var dedupeFlags dedupeFlagValues

// NewDedupeCommand creates the dedupe command
func NewDedupeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Find and remove duplicate files",
	}

	cmd.AddCommand(newDedupeReportCommand())
	cmd.AddCommand(newDedupeRunCommand())

	return cmd
}

func newDedupeReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [folder]",
		Short: "List duplicated content in the catalog",
		Long: `Group catalog records by content hash and list every hash with
more than one copy, with the space reclaimable by keeping one. With a
folder argument only records under that folder are considered.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDedupeReport,
	}

	cmd.Flags().StringVar(&dedupeFlags.KeepLocation, "keep-location", "", "prefer keeping copies whose path contains this string")
	cmd.Flags().StringVarP(&dedupeFlags.Output, "output", "o", "", "output format: human, json (default from config)")

	return cmd
}

func runDedupeReport(cmd *cobra.Command, args []string) error {
	prefix := ""
	if len(args) == 1 {
		expanded, err := platform.ExpandPath(args[0])
		if err != nil {
			return err
		}
		prefix = expanded
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dedupeFlags.Output != "" {
		cfg.Output.Format = dedupeFlags.Output
	}
	formatter, err := output.ForFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	groups, err := dedupe.Report(store, prefix)
	if err != nil {
		return fmt.Errorf("duplicate report failed: %w", err)
	}
	savings := dedupe.SpaceSavings(groups, dedupeFlags.KeepLocation)

	return formatter.Duplicates(stdout(), groups, savings)
}

func newDedupeRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <folder-a> <folder-b>",
		Short: "Delete redundant conflicting copies across two folders",
		Long: `Analyze both folders, then for every name conflict keep only the
most recently modified version and delete the rest. Without --apply the
conflict groups are printed and nothing is deleted.`,
		Args: cobra.ExactArgs(2),
		RunE: runDedupeRun,
	}

	cmd.Flags().StringVar(&dedupeFlags.Scope, "scope", "both", "which side to delete from: both, a, b")
	cmd.Flags().BoolVar(&dedupeFlags.Apply, "apply", false, "perform the deletions (default is a dry run)")
	cmd.Flags().StringVarP(&dedupeFlags.Output, "output", "o", "", "output format: human, json (default from config)")

	return cmd
}

func runDedupeRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	treeA, treeB, err := resolveTreePair(args[0], args[1])
	if err != nil {
		return err
	}

	var scope dedupe.Scope
	switch dedupeFlags.Scope {
	case "both":
		scope = dedupe.ScopeBoth
	case "a":
		scope = dedupe.ScopeA
	case "b":
		scope = dedupe.ScopeB
	default:
		return fmt.Errorf("invalid scope: %q (valid: both, a, b)", dedupeFlags.Scope)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dedupeFlags.Output != "" {
		cfg.Output.Format = dedupeFlags.Output
	}
	formatter, err := output.ForFormat(cfg.Output.Format)
	if err != nil {
		return err
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
	rec := reconcile.New(reconcile.Config{
		Scanner:  scanner,
		Reporter: reporter,
		Throttle: progress.Throttle{
			MinInterval: cfg.Progress.Interval(),
			MinItems:    cfg.Progress.MinItems,
		},
		Logger: logger,
	})

	result, err := rec.Analyze(ctx, treeA, treeB)
	finish()
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if !dedupeFlags.Apply {
		if err := formatter.Analysis(stdout(), result); err != nil {
			return err
		}
		fmt.Fprintf(stdout(), "\nDry run: %d conflict groups. Re-run with --apply to delete.\n", len(result.Conflicts))
		return nil
	}

	eliminator := dedupe.New(dedupe.Config{
		Store:   store,
		Scanner: scanner,
		Sink:    audit.NewLoggerSink(logger),
		Logger:  logger,
	})
	outcome, err := eliminator.Eliminate(ctx, result.Conflicts, scope, treeA, treeB)
	if err != nil {
		return fmt.Errorf("elimination failed: %w", err)
	}

	if err := formatter.Elimination(stdout(), outcome); err != nil {
		return err
	}
	if len(outcome.Errors) > 0 {
		return fmt.Errorf("%d files failed", len(outcome.Errors))
	}
	return nil
}
