package form

import "github.com/roach88/sparqlayers/internal/rdf"

// InScope returns the variables bound by patterns, in order of first
// appearance. FILTER and MINUS bind nothing.
func InScope(patterns []Pattern) []string {
	s := &scope{seen: make(map[string]bool)}
	for _, p := range patterns {
		s.pattern(p)
	}
	return s.names
}

// Projected returns the variables a query exposes: its explicit projection,
// or everything in scope of its where clause for '*'.
func Projected(q *Query) []string {
	if q.IsWildcard() {
		return InScope(q.Where)
	}
	s := &scope{seen: make(map[string]bool)}
	for _, p := range q.Variables {
		s.term(p.Term)
	}
	return s.names
}

type scope struct {
	seen  map[string]bool
	names []string
}

func (s *scope) add(name string) {
	if !s.seen[name] {
		s.seen[name] = true
		s.names = append(s.names, name)
	}
}

func (s *scope) term(t rdf.Term) {
	if name, ok := rdf.VariableName(t); ok {
		s.add(name)
	}
}

func (s *scope) patterns(ps []Pattern) {
	for _, p := range ps {
		s.pattern(p)
	}
}

func (s *scope) pattern(p Pattern) {
	switch v := p.(type) {
	case *BGP:
		for _, name := range rdf.Variables(v.Triples) {
			s.add(name)
		}
	case *Group:
		s.patterns(v.Patterns)
	case *Bind:
		s.add(v.Variable.Value)
	case *Optional:
		s.patterns(v.Patterns)
	case *Union:
		s.patterns(v.Patterns)
	case *Values:
		for _, vr := range v.Variables {
			s.add(vr.Value)
		}
	case *Graph:
		s.term(v.Name)
		s.patterns(v.Patterns)
	case *Service:
		s.term(v.Name)
		s.patterns(v.Patterns)
	case *Query:
		for _, name := range Projected(v) {
			s.add(name)
		}
	case *Filter, *Minus, *Opaque:
		// bind nothing
	}
}
