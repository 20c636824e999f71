package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shelfsync/shelfsync/pkg/audit"
	"github.com/shelfsync/shelfsync/pkg/output"
	"github.com/shelfsync/shelfsync/pkg/progress"
	"github.com/shelfsync/shelfsync/pkg/ratelimit"
	"github.com/shelfsync/shelfsync/pkg/reconcile"
	"github.com/shelfsync/shelfsync/pkg/resolve"
)

type syncFlagValues struct {
	Strategy       string
	Apply          bool
	BandwidthLimit int64
	Output         string
}

var syncFlags syncFlagValues

// NewSyncCommand creates the sync command
func NewSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <folder-a> <folder-b>",
		Short: "Reconcile two folders",
		Long: `Compare two folders and copy files so both sides hold the same
content. Conflicting versions of a name are resolved by the selected
strategy. Without --apply this is a dry run: the plan is printed and
nothing is copied.`,
		Args: cobra.ExactArgs(2),
		RunE: runSync,
	}

	cmd.Flags().StringVarP(&syncFlags.Strategy, "strategy", "s", "", "conflict strategy: keep_both, keep_newest, keep_largest (default from config)")
	cmd.Flags().BoolVar(&syncFlags.Apply, "apply", false, "perform the planned copies (default is a dry run)")
	cmd.Flags().Int64Var(&syncFlags.BandwidthLimit, "bwlimit", 0, "copy bandwidth limit in bytes per second (0 = unlimited)")
	cmd.Flags().StringVarP(&syncFlags.Output, "output", "o", "", "output format: human, json (default from config)")

	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	treeA, treeB, err := resolveTreePair(args[0], args[1])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if syncFlags.Output != "" {
		cfg.Output.Format = syncFlags.Output
	}
	if syncFlags.Strategy != "" {
		cfg.Sync.Strategy = syncFlags.Strategy
	}
	if syncFlags.BandwidthLimit > 0 {
		cfg.Sync.BandwidthLimit = syncFlags.BandwidthLimit
	}

	// Fail on a bad strategy before any filesystem work happens.
	strategy, err := resolve.ParseStrategy(cfg.Sync.Strategy)
	if err != nil {
		return err
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

	plan, err := resolve.NewPlanner(nil).BuildPlan(result, strategy, nil)
	if err != nil {
		return err
	}

	if !syncFlags.Apply {
		if err := formatter.Analysis(stdout(), result); err != nil {
			return err
		}
		fmt.Fprintf(stdout(), "\nDry run: %d items (%s) would be copied. Re-run with --apply to execute.\n",
			len(plan.Items), output.FormatBytes(plan.BytesToCopy()))
		return nil
	}

	executor := resolve.NewExecutor(resolve.ExecutorConfig{
		Store:     store,
		Sink:      audit.NewLoggerSink(logger),
		Limiter:   ratelimit.NewLimiter(cfg.Sync.BandwidthLimit),
		Logger:    logger,
		ChunkSize: cfg.Catalog.ChunkSize,
	})
	outcome, err := executor.Apply(ctx, plan)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	if err := formatter.Execution(stdout(), plan, outcome); err != nil {
		return err
	}
	if len(outcome.Errors) > 0 {
		return fmt.Errorf("%d items failed", len(outcome.Errors))
	}
	return nil
}
