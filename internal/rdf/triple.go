package rdf

// Triple is a triple pattern. Any position may hold a variable; Predicate is
// a NamedNode or Variable in every pattern the codec produces.
type Triple struct {
	Subject   Term `json:"subject"`
	Predicate Term `json:"predicate"`
	Object    Term `json:"object"`
}

// NewTriple builds a triple pattern.
func NewTriple(s, p, o Term) Triple {
	return Triple{Subject: s, Predicate: p, Object: o}
}

// Equal reports whether all three positions are equal.
func (t Triple) Equal(o Triple) bool {
	return Equal(t.Subject, o.Subject) &&
		Equal(t.Predicate, o.Predicate) &&
		Equal(t.Object, o.Object)
}

// WithObject returns a copy of t whose object is replaced.
func (t Triple) WithObject(o Term) Triple {
	t.Object = o
	return t
}

// Matches reports whether o is an instance of the pattern t. A nil or
// variable position in t matches any term; other positions must be equal.
func (t Triple) Matches(o Triple) bool {
	return matchTerm(t.Subject, o.Subject) &&
		matchTerm(t.Predicate, o.Predicate) &&
		matchTerm(t.Object, o.Object)
}

func matchTerm(pattern, t Term) bool {
	if pattern == nil || IsVariable(pattern) {
		return true
	}
	return Equal(pattern, t)
}

// Variables returns the distinct variable names of a triple in
// subject, predicate, object order.
func (t Triple) Variables() []string {
	return Variables([]Triple{t})
}

// Variables returns the distinct variable names across triples in order of
// first appearance.
func Variables(triples []Triple) []string {
	seen := make(map[string]bool)
	var names []string
	for _, t := range triples {
		for _, term := range []Term{t.Subject, t.Predicate, t.Object} {
			if name, ok := VariableName(term); ok && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// IndexOfPredicate returns the index of the first triple whose predicate
// equals p, or -1.
func IndexOfPredicate(triples []Triple, p Term) int {
	for i, t := range triples {
		if Equal(t.Predicate, p) {
			return i
		}
	}
	return -1
}

// Filter returns the triples matched by pattern.
func Filter(triples []Triple, pattern Triple) []Triple {
	var out []Triple
	for _, t := range triples {
		if pattern.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// RemoveAt returns triples without the element at index i. The input slice
// is not modified.
func RemoveAt(triples []Triple, i int) []Triple {
	if i < 0 || i >= len(triples) {
		return triples
	}
	out := make([]Triple, 0, len(triples)-1)
	out = append(out, triples[:i]...)
	return append(out, triples[i+1:]...)
}
