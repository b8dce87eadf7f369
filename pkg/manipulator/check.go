// Package manipulator contains the graph operations of the conversion
// pipeline. Manipulators mutate the graph in place and run strictly
// sequentially.
package manipulator

import (
	"fmt"
	"math"

	"github.com/korpling/annatto/pkg/graph"
	"github.com/korpling/annatto/pkg/query"
	"github.com/korpling/annatto/pkg/status"
)

// Check runs a list of named test queries against the graph and fails the
// workflow when any of them misses its expected result.
type Check struct {
	// Tests are the queries to run.
	Tests []Test `toml:"tests" doc:"The list of tests to run against the graph."`
	// Report additionally sends the result of each test as an info message.
	Report bool `toml:"report" doc:"Additionally send the result of each test as an info message."`
}

// Test is one check: a query, the expected result and a description shown in
// reports and failure messages.
type Test struct {
	Query       string         `toml:"query"`
	Expected    ExpectedResult `toml:"expected"`
	Description string         `toml:"description"`
}

// ExpectedResult is either an exact match count or a closed [lower, upper]
// interval of acceptable counts. An interval with an infinite upper bound is
// half-open.
type ExpectedResult struct {
	exact    bool
	count    uint64
	lower    float64
	upper    float64
	interval bool
}

// UnmarshalTOML accepts an integer or a two-element [lower, upper] array.
func (e *ExpectedResult) UnmarshalTOML(value any) error {
	switch v := value.(type) {
	case int64:
		if v < 0 {
			return fmt.Errorf("expected count must not be negative, got %d", v)
		}
		*e = ExpectedResult{exact: true, count: uint64(v)}
		return nil
	case []any:
		if len(v) != 2 {
			return fmt.Errorf("expected interval must have two elements, got %d", len(v))
		}
		lower, err := tomlFloat(v[0])
		if err != nil {
			return err
		}
		upper, err := tomlFloat(v[1])
		if err != nil {
			return err
		}
		*e = ExpectedResult{interval: true, lower: lower, upper: upper}
		return nil
	default:
		return fmt.Errorf("expected result must be a count or an interval, got %T", value)
	}
}

func tomlFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("interval bound must be a number, got %T", v)
	}
}

// matches reports whether a result count satisfies the expectation.
func (e *ExpectedResult) matches(n uint64) bool {
	if e.exact {
		return n == e.count
	}
	if !e.interval {
		return false
	}
	if float64(n) < e.lower {
		return false
	}
	if math.IsInf(e.upper, 1) || math.IsNaN(e.upper) {
		return true
	}
	return float64(n) <= e.upper
}

// ManipulateCorpus runs all tests. The graph is never modified.
func (c *Check) ManipulateCorpus(g *graph.Graph, _ string, stepID status.StepID, sender status.Sender) error {
	progress := status.NewProgressReporter(sender, stepID, uint64(len(c.Tests)))
	var failed []string
	for _, test := range c.Tests {
		passed, count, err := runTest(g, &test)
		result := "passed"
		switch {
		case err != nil:
			failed = append(failed, test.Description)
			result = fmt.Sprintf("error (%v)", err)
		case !passed:
			failed = append(failed, test.Description)
			result = fmt.Sprintf("failed (%d)", count)
		}
		if c.Report {
			progress.Info(fmt.Sprintf("%s: %s", test.Description, result))
		}
		progress.Worked(1)
	}
	if len(failed) > 0 {
		return &status.ChecksFailedError{Failed: failed}
	}
	return nil
}

// RequiresStatistics is false; the tests only count annotation matches.
func (*Check) RequiresStatistics() bool { return false }

func runTest(g *graph.Graph, test *Test) (bool, uint64, error) {
	q, err := query.Parse(test.Query)
	if err != nil {
		return false, 0, err
	}
	count, err := q.Count(g)
	if err != nil {
		return false, 0, err
	}
	return test.Expected.matches(count), count, nil
}
