// Package output renders analysis results, execution outcomes, and
// duplicate reports for humans or for automation.
package output

import (
	"fmt"
	"io"

	"github.com/shelfsync/shelfsync/pkg/dedupe"
	"github.com/shelfsync/shelfsync/pkg/reconcile"
	"github.com/shelfsync/shelfsync/pkg/resolve"
)

// Formatter defines the interface for output formatting.
// Implementations include human-readable and JSON formatters
type Formatter interface {
	// Analysis renders a reconciliation result
	Analysis(w io.Writer, res *reconcile.Result) error

	// Execution renders the outcome of applying a plan
	Execution(w io.Writer, plan *resolve.Plan, outcome *resolve.Outcome) error

	// Duplicates renders a whole-catalog duplicate report
	Duplicates(w io.Writer, groups []dedupe.Group, savings int64) error

	// Elimination renders a duplicate elimination outcome
	Elimination(w io.Writer, outcome *dedupe.Outcome) error

	// Name returns the formatter name
	Name() string
}

// ForFormat returns the formatter for a config format name
func ForFormat(format string) (Formatter, error) {
	switch format {
	case "human":
		return NewHumanFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	}
	return nil, fmt.Errorf("unknown output format: %q", format)
}

// FormatBytes formats bytes in human-readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
