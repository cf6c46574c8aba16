package protocol

import (
	"encoding/json"
	"fmt"
)

// Binding value types in the SPARQL 1.1 results JSON format.
const (
	BindingURI          = "uri"
	BindingBNode        = "bnode"
	BindingLiteral      = "literal"
	BindingTypedLiteral = "typed-literal"
)

// Results is a decoded application/sparql-results+json document. ASK
// responses set Boolean; SELECT responses set Bindings.
type Results struct {
	Head struct {
		Vars []string `json:"vars"`
		Link []string `json:"link,omitempty"`
	} `json:"head"`
	Boolean *bool `json:"boolean,omitempty"`
	Body    *struct {
		Bindings []map[string]Binding `json:"bindings"`
	} `json:"results,omitempty"`
}

// Binding is one RDF term in a solution.
type Binding struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// Bindings returns the solutions, or nil for a boolean result.
func (r *Results) Bindings() []map[string]Binding {
	if r.Body == nil {
		return nil
	}
	return r.Body.Bindings
}

// DecodeResults parses a results JSON document.
func DecodeResults(data []byte) (*Results, error) {
	var r Results
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode sparql results: %w", err)
	}
	if r.Boolean == nil && r.Body == nil {
		return nil, fmt.Errorf("decode sparql results: neither boolean nor results present")
	}
	for i, row := range r.Bindings() {
		for name, b := range row {
			switch b.Type {
			case BindingURI, BindingBNode, BindingLiteral, BindingTypedLiteral:
			default:
				return nil, fmt.Errorf("decode sparql results: solution %d, ?%s: unknown term type %q", i, name, b.Type)
			}
		}
	}
	return &r, nil
}
