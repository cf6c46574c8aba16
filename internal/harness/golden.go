package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result as the text stored in golden files: the tree
// outline, every node's query in pre-order, the flow trace and the request
// counts. Node keys never appear, so snapshots are stable across runs.
func Snapshot(name string, r *Result) []byte {
	var buf strings.Builder

	fmt.Fprintf(&buf, "scenario: %s\n\ntree:\n%s\nqueries:\n", name, r.Tree)
	for _, q := range r.Queries {
		fmt.Fprintf(&buf, "[%d] %s", q.Node, q.Kind)
		if len(q.Dimensions) > 0 {
			fmt.Fprintf(&buf, " [%s]", strings.Join(q.Dimensions, " "))
		}
		fmt.Fprintf(&buf, "\n%s\n", q.Query)
	}

	buf.WriteString("\ntrace:\n")
	for _, event := range r.Trace {
		fmt.Fprintf(&buf, "%s\n", traceLine(event))
	}

	fmt.Fprintf(&buf, "\nrequests: %d\nrecorded: %d\n", r.Requests, r.Recorded)
	return []byte(buf.String())
}

func traceLine(e TraceEvent) string {
	line := fmt.Sprintf("[%d] %s node=%d", e.Step, e.Op, e.Node)
	if e.Seq > 0 {
		line += fmt.Sprintf(" seq=%d", e.Seq)
	}
	line += " " + e.Status
	if e.Detail != "" {
		line += ": " + e.Detail
	}
	return line
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(scenarioName, result))
}
