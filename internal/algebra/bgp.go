package algebra

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/roach88/sparqlayers/internal/rdf"
)

// reindex rebuilds the predicate/dimension maps from the triples.
func (b *BGP) reindex() {
	fresh := NewBGP(b.Triples)
	b.DimensionToProperty = fresh.DimensionToProperty
	b.PropertyToDimension = fresh.PropertyToDimension
}

// PredicateDimension returns the variable bound to predicate's object, or
// a free name derived from the last '#' or '/' segment of the IRI.
func (b *BGP) PredicateDimension(predicate rdf.NamedNode) string {
	if dim, ok := b.PropertyToDimension[predicate.Value]; ok {
		return dim
	}
	taken := make(map[string]bool)
	for _, name := range rdf.Variables(b.Triples) {
		taken[name] = true
	}
	base := dimensionName(predicate.Value)
	name := base
	for i := 2; taken[name]; i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	return name
}

func dimensionName(iri string) string {
	tail := iri
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 {
		tail = iri[i+1:]
	}
	var sb strings.Builder
	for _, r := range tail {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "p"
	}
	return sb.String()
}

func validDimension(name string) bool {
	return name != "" && dimensionName(name) == name
}

func (t *Tree) bgpNode(id NodeID) (*Node, *BGP, error) {
	n, err := t.mustNode(id)
	if err != nil {
		return nil, nil, err
	}
	b, ok := n.Payload.(*BGP)
	if !ok {
		return nil, nil, fmt.Errorf("node %d (%s): %w", id, n.Kind(), ErrNotBGP)
	}
	return n, b, nil
}

// SetPredicateState includes (on) or excludes (off) predicate in the BGP at
// id.
//
// Including appends "subject <predicate> ?dim" when no triple uses the
// predicate yet; subject is the first triple's subject, or ?s for an empty
// pattern, and dim comes from PredicateDimension. Excluding removes the
// first triple using the predicate. Either way the dimension maps, the
// node's dimensions and the cached expressions are updated and the bound
// view is told to re-render the query.
func (t *Tree) SetPredicateState(id NodeID, predicate rdf.NamedNode, on bool) error {
	n, b, err := t.bgpNode(id)
	if err != nil {
		return err
	}

	i := rdf.IndexOfPredicate(b.Triples, predicate)
	switch {
	case on && i < 0:
		var subject rdf.Term = rdf.NewVariable("s")
		if len(b.Triples) > 0 {
			subject = b.Triples[0].Subject
		}
		dim := b.PredicateDimension(predicate)
		b.Triples = append(b.Triples, rdf.NewTriple(subject, predicate, rdf.NewVariable(dim)))
	case !on && i >= 0:
		b.Triples = rdf.RemoveAt(b.Triples, i)
	default:
		return nil
	}
	b.reindex()
	t.bgpChanged(n)
	return nil
}

// SetPredicateDimension renames the variable bound to predicate's object.
func (t *Tree) SetPredicateDimension(id NodeID, predicate rdf.NamedNode, name string) error {
	n, b, err := t.bgpNode(id)
	if err != nil {
		return err
	}
	if !validDimension(name) {
		return fmt.Errorf("dimension %q: %w", name, ErrInvalidDimension)
	}
	i := rdf.IndexOfPredicate(b.Triples, predicate)
	if i < 0 {
		return fmt.Errorf("predicate %s: %w", predicate, ErrUnknownPredicate)
	}
	if current, ok := rdf.VariableName(b.Triples[i].Object); ok && current == name {
		return nil
	}
	for _, used := range rdf.Variables(b.Triples) {
		if used == name {
			return fmt.Errorf("dimension %q: %w", name, ErrDimensionTaken)
		}
	}
	b.Triples[i] = b.Triples[i].WithObject(rdf.NewVariable(name))
	b.reindex()
	t.bgpChanged(n)
	return nil
}

func (t *Tree) bgpChanged(n *Node) {
	t.invalidate(n.ID)
	t.resolveDimensions(t.Root(n.ID))
	if n.View != nil {
		n.View.Present(n, ReasonQuery)
	}
}
