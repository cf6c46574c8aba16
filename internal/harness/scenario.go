package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one end-to-end run of a query.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Query is the SPARQL text loaded into a fresh tree.
	Query string `yaml:"query"`

	// Endpoint configures the canned responses.
	Endpoint Endpoint `yaml:"endpoint,omitempty"`

	// Flow contains the steps applied to the tree, in order.
	Flow []Step `yaml:"flow,omitempty"`

	// Assertions validate the final tree, queries and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Endpoint is the canned SPARQL endpoint.
type Endpoint struct {
	// Default answers every query without a more specific response. Empty
	// makes such queries fail with HTTP 404.
	Default string `yaml:"default,omitempty"`

	// Predicates answers the predicate discovery query.
	Predicates []string `yaml:"predicates,omitempty"`
}

// Step is one operation in the flow.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Node is the pre-order position of the target operator.
	Node int `yaml:"node"`

	// Predicate is the predicate IRI (set_predicate, set_dimension).
	Predicate string `yaml:"predicate,omitempty"`

	// Enabled turns the predicate on or off (set_predicate).
	Enabled bool `yaml:"enabled,omitempty"`

	// Dimension is the new variable name (set_dimension).
	Dimension string `yaml:"dimension,omitempty"`

	// Text is the replacement query text (set_expression).
	Text string `yaml:"text,omitempty"`

	// Location is the endpoint bound by set_arguments.
	Location string `yaml:"location,omitempty"`

	// Mode is "active" or "dormant" (set_mode).
	Mode string `yaml:"mode,omitempty"`

	// Expect checks the step outcome. If nil, any outcome is accepted.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Status is "ok" or "error".
	Status string `yaml:"status"`

	// Predicates is the expected predicate list (predicates).
	Predicates []string `yaml:"predicates,omitempty"`
}

// Step operations.
const (
	OpExecute       = "execute"
	OpPredicates    = "predicates"
	OpSetPredicate  = "set_predicate"
	OpSetDimension  = "set_dimension"
	OpSetExpression = "set_expression"
	OpSetArguments  = "set_arguments"
	OpSetMode       = "set_mode"
)

// Assertion validates the final result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Node is the pre-order position of the operator (query_*, dimensions, kind).
	Node int `yaml:"node,omitempty"`

	// Text is the expected or contained text (tree_contains, query_*, kind).
	Text string `yaml:"text,omitempty"`

	// Count is the expected count (request_count, fallback_count, node_count).
	Count int `yaml:"count,omitempty"`

	// Dimensions is the expected dimension list (dimensions).
	Dimensions []string `yaml:"dimensions,omitempty"`
}

// Assertion type constants.
const (
	AssertTreeContains  = "tree_contains"
	AssertKind          = "kind"
	AssertQueryEquals   = "query_equals"
	AssertQueryContains = "query_contains"
	AssertDimensions    = "dimensions"
	AssertRequestCount  = "request_count"
	AssertFallbackCount = "fallback_count"
	AssertNodeCount     = "node_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Query == "" {
		return fmt.Errorf("query is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	if st.Node < 0 {
		return fmt.Errorf("flow[%d]: node must be non-negative", index)
	}
	switch st.Op {
	case OpExecute, OpPredicates:
	case OpSetPredicate:
		if st.Predicate == "" {
			return fmt.Errorf("flow[%d]: predicate is required for %s", index, st.Op)
		}
	case OpSetDimension:
		if st.Predicate == "" || st.Dimension == "" {
			return fmt.Errorf("flow[%d]: predicate and dimension are required for %s", index, st.Op)
		}
	case OpSetExpression:
		if st.Text == "" {
			return fmt.Errorf("flow[%d]: text is required for %s", index, st.Op)
		}
	case OpSetArguments:
		if st.Location == "" {
			return fmt.Errorf("flow[%d]: location is required for %s", index, st.Op)
		}
	case OpSetMode:
		if st.Mode != "active" && st.Mode != "dormant" {
			return fmt.Errorf("flow[%d]: mode must be active or dormant", index)
		}
	case "":
		return fmt.Errorf("flow[%d]: op is required", index)
	default:
		return fmt.Errorf("flow[%d]: unknown op %q", index, st.Op)
	}
	if st.Expect != nil && st.Expect.Status != "ok" && st.Expect.Status != "error" {
		return fmt.Errorf("flow[%d].expect: status must be ok or error", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertTreeContains, AssertKind, AssertQueryEquals, AssertQueryContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertDimensions:
	case AssertRequestCount, AssertFallbackCount, AssertNodeCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
