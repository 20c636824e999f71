package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/shelfsync/shelfsync/pkg/dedupe"
	"github.com/shelfsync/shelfsync/pkg/reconcile"
	"github.com/shelfsync/shelfsync/pkg/resolve"
)

// JSONFormatter formats output as JSON for automation and scripting
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// JSONEnvelope wraps every emitted document
type JSONEnvelope struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Data      any       `json:"data"`
}

func (f *JSONFormatter) emit(w io.Writer, kind string, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(JSONEnvelope{
		Timestamp: time.Now().UTC(),
		Type:      kind,
		Data:      data,
	})
}

// Analysis renders a reconciliation result
func (f *JSONFormatter) Analysis(w io.Writer, res *reconcile.Result) error {
	return f.emit(w, "analysis", res)
}

// JSONExecutionData pairs a plan with its outcome
type JSONExecutionData struct {
	Strategy string           `json:"strategy"`
	Planned  int              `json:"planned"`
	Outcome  *resolve.Outcome `json:"outcome"`
	Errors   []string         `json:"errors,omitempty"`
}

// Execution renders the outcome of applying a plan
func (f *JSONFormatter) Execution(w io.Writer, plan *resolve.Plan, outcome *resolve.Outcome) error {
	return f.emit(w, "execution", JSONExecutionData{
		Strategy: string(plan.Strategy),
		Planned:  len(plan.Items),
		Outcome:  outcome,
		Errors:   outcome.ErrorStrings(),
	})
}

// JSONDuplicatesData is the duplicate report document
type JSONDuplicatesData struct {
	Groups  []dedupe.Group `json:"groups"`
	Savings int64          `json:"savings_bytes"`
}

// Duplicates renders a whole-catalog duplicate report
func (f *JSONFormatter) Duplicates(w io.Writer, groups []dedupe.Group, savings int64) error {
	return f.emit(w, "duplicates", JSONDuplicatesData{Groups: groups, Savings: savings})
}

// JSONEliminationData is the elimination outcome document
type JSONEliminationData struct {
	Outcome *dedupe.Outcome `json:"outcome"`
	Errors  []string        `json:"errors,omitempty"`
}

// Elimination renders a duplicate elimination outcome
func (f *JSONFormatter) Elimination(w io.Writer, outcome *dedupe.Outcome) error {
	errs := make([]string, len(outcome.Errors))
	for i, err := range outcome.Errors {
		errs[i] = err.Error()
	}
	return f.emit(w, "elimination", JSONEliminationData{Outcome: outcome, Errors: errs})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}
