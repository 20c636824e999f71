package resolve

import "fmt"

// Strategy selects how conflicting files are resolved. Unique files are
// always propagated to the opposite tree regardless of strategy.
type Strategy string

const (
	// StrategyKeepBoth retains both conflicting versions, copied to the
	// opposite side under a name suffixed with the origin side
	StrategyKeepBoth Strategy = "keep_both"
	// StrategyKeepNewest propagates the most recently modified version
	StrategyKeepNewest Strategy = "keep_newest"
	// StrategyKeepLargest propagates the largest version
	StrategyKeepLargest Strategy = "keep_largest"
	// StrategyExplicit follows caller-supplied per-file decisions
	StrategyExplicit Strategy = "explicit"
)

// InvalidStrategyError indicates an unrecognized strategy name. It is
// raised before any filesystem mutation.
type InvalidStrategyError struct {
	Value string
}

func (e *InvalidStrategyError) Error() string {
	return fmt.Sprintf("invalid resolution strategy: %q (valid: keep_both, keep_newest, keep_largest, explicit)", e.Value)
}

// ParseStrategy validates a strategy name supplied by a caller
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyKeepBoth, StrategyKeepNewest, StrategyKeepLargest, StrategyExplicit:
		return Strategy(s), nil
	}
	return "", &InvalidStrategyError{Value: s}
}
