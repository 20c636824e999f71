package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shelfsync/shelfsync/internal/jobs"
	"github.com/shelfsync/shelfsync/pkg/output"
	"github.com/shelfsync/shelfsync/pkg/progress"
	"github.com/shelfsync/shelfsync/pkg/reconcile"
)

type analyzeFlagValues struct {
	Output string
}

var analyzeFlags analyzeFlagValues

// NewAnalyzeCommand creates the analyze command
func NewAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <folder-a> <folder-b>",
		Short: "Compare two folders without changing anything",
		Long: `Index both folders and report exact matches, unique files, name
conflicts, and suspected renames. Nothing on disk is modified.`,
		Args: cobra.ExactArgs(2),
		RunE: runAnalyze,
	}

	cmd.Flags().StringVarP(&analyzeFlags.Output, "output", "o", "", "output format: human, json (default from config)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	treeA, treeB, err := resolveTreePair(args[0], args[1])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if analyzeFlags.Output != "" {
		cfg.Output.Format = analyzeFlags.Output
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

	// The analysis runs as a background job; this process just polls
	// the snapshot store for display until the job finishes.
	manager := jobs.NewManager(progress.NewStore(), logger)
	jobID := manager.Start(ctx, func(jobCtx context.Context, reporter progress.Reporter) (*reconcile.Result, error) {
		rec := reconcile.New(reconcile.Config{
			Scanner:  scanner,
			Reporter: reporter,
			Throttle: progress.Throttle{
				MinInterval: cfg.Progress.Interval(),
				MinItems:    cfg.Progress.MinItems,
			},
			Logger: logger,
		})
		return rec.Analyze(jobCtx, treeA, treeB)
	})

	reporter, finish := newProgressReporter(cfg)
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				reporter.Report(manager.Store().Get(jobID))
			}
		}
	}()

	result, runErr, _ := manager.Wait(jobID)
	close(done)
	finish()
	if runErr != nil {
		return fmt.Errorf("analysis failed: %w", runErr)
	}

	return formatter.Analysis(stdout(), result)
}
