package engine

import (
	"bytes"
	"encoding/json"
	"fmt"

	krdf "github.com/knakk/rdf"

	"github.com/roach88/sparqlayers/internal/form"
	"github.com/roach88/sparqlayers/internal/protocol"
	"github.com/roach88/sparqlayers/internal/rdf"
)

// Solutions is the decoded result of a SELECT query.
type Solutions struct {
	Vars []string
	Rows []map[string]krdf.Term
}

// MarshalJSON renders every term in N-Triples syntax.
func (s *Solutions) MarshalJSON() ([]byte, error) {
	rows := make([]map[string]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		out := make(map[string]string, len(row))
		for name, term := range row {
			out[name] = term.Serialize(krdf.NTriples)
		}
		rows = append(rows, out)
	}
	return json.Marshal(struct {
		Vars []string            `json:"vars"`
		Rows []map[string]string `json:"rows"`
	}{s.Vars, rows})
}

// Graph is the decoded result of a CONSTRUCT or DESCRIBE query.
type Graph struct {
	Triples []krdf.Triple
}

// MarshalJSON renders the graph as a list of N-Triples statements.
func (g *Graph) MarshalJSON() ([]byte, error) {
	lines := make([]string, 0, len(g.Triples))
	for _, t := range g.Triples {
		lines = append(lines, t.Serialize(krdf.NTriples))
	}
	return json.Marshal(lines)
}

// parseResponse derives the response object for the query type: a bool for
// ASK, a *Graph for CONSTRUCT and DESCRIBE, *Solutions otherwise.
func parseResponse(queryType string, resp *protocol.Response) (any, error) {
	switch queryType {
	case form.QueryConstruct, form.QueryDescribe:
		dec := krdf.NewTripleDecoder(bytes.NewReader(resp.Body), krdf.NTriples)
		triples, err := dec.DecodeAll()
		if err != nil {
			return nil, fmt.Errorf("decode n-triples: %w", err)
		}
		return &Graph{Triples: triples}, nil
	}

	results, err := protocol.DecodeResults(resp.Body)
	if err != nil {
		return nil, err
	}
	if queryType == form.QueryAsk {
		if results.Boolean == nil {
			return nil, fmt.Errorf("ask response has no boolean")
		}
		return *results.Boolean, nil
	}

	sol := &Solutions{Vars: results.Head.Vars}
	for i, binding := range results.Bindings() {
		row := make(map[string]krdf.Term, len(binding))
		for name, b := range binding {
			term, err := resultTerm(b)
			if err != nil {
				return nil, fmt.Errorf("solution %d, ?%s: %w", i, name, err)
			}
			row[name] = term
		}
		sol.Rows = append(sol.Rows, row)
	}
	return sol, nil
}

func resultTerm(b protocol.Binding) (krdf.Term, error) {
	switch b.Type {
	case protocol.BindingURI:
		return krdf.NewIRI(b.Value)
	case protocol.BindingBNode:
		return krdf.NewBlank(b.Value)
	}
	if b.Lang != "" {
		return krdf.NewLangLiteral(b.Value, b.Lang)
	}
	datatype := b.Datatype
	if datatype == "" {
		datatype = rdf.XSDString
	}
	dt, err := krdf.NewIRI(datatype)
	if err != nil {
		return nil, err
	}
	return krdf.NewTypedLiteral(b.Value, dt), nil
}
