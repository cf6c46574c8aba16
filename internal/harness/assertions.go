package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", traceLine(event))
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err))
		}
	}
	return errs
}

func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertTreeContains:
		return assertTreeContains(r, a)
	case AssertKind, AssertQueryEquals, AssertQueryContains, AssertDimensions:
		return assertNode(r, a)
	case AssertRequestCount:
		return assertCount(r, a, r.Requests)
	case AssertFallbackCount:
		return assertCount(r, a, r.Fallbacks)
	case AssertNodeCount:
		return assertCount(r, a, len(r.Queries))
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertTreeContains(r *Result, a Assertion) error {
	if strings.Contains(r.Tree, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("tree containing %q", a.Text),
		Actual:   r.Tree,
		Trace:    r.Trace,
	}
}

// assertNode checks one operator addressed by pre-order position.
func assertNode(r *Result, a Assertion) error {
	q, ok := r.query(a.Node)
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("node at position %d", a.Node),
			Actual:   fmt.Sprintf("tree has %d nodes", len(r.Queries)),
		}
	}

	var expected, actual string
	switch a.Type {
	case AssertKind:
		if string(q.Kind) == a.Text {
			return nil
		}
		expected, actual = a.Text, string(q.Kind)
	case AssertQueryEquals:
		// YAML block scalars end in a newline; generated queries don't.
		want := strings.TrimRight(a.Text, "\n")
		if q.Query == want {
			return nil
		}
		expected, actual = want, q.Query
	case AssertQueryContains:
		if strings.Contains(q.Query, a.Text) {
			return nil
		}
		expected, actual = fmt.Sprintf("query containing %q", a.Text), q.Query
	case AssertDimensions:
		if slices.Equal(q.Dimensions, a.Dimensions) || len(q.Dimensions)+len(a.Dimensions) == 0 {
			return nil
		}
		expected, actual = fmt.Sprint(a.Dimensions), fmt.Sprint(q.Dimensions)
	}
	return &AssertionError{
		Type:     fmt.Sprintf("%s (node %d)", a.Type, a.Node),
		Expected: expected,
		Actual:   actual,
		Trace:    r.Trace,
	}
}

func assertCount(r *Result, a Assertion, actual int) error {
	if actual == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d", a.Count),
		Actual:   fmt.Sprintf("%d", actual),
		Trace:    r.Trace,
	}
}
