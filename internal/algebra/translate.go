package algebra

import (
	"fmt"
	"sort"

	"golang.org/x/text/cases"

	"github.com/roach88/sparqlayers/internal/form"
	"github.com/roach88/sparqlayers/internal/rdf"
)

// TranslateFunc builds the node for one parsed form and returns its ID.
// A returned error makes the translation fall back to a Unit node.
type TranslateFunc func(tx *Translation, f form.Form) (NodeID, error)

// Registry maps form tags to translators. Tags are case folded.
//
// A Registry is append-only: a tag, once registered, keeps its translator.
// Build it before first use; it is read-only afterwards and may then be
// shared between goroutines.
type Registry struct {
	translators map[string]TranslateFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{translators: make(map[string]TranslateFunc)}
}

// foldTag normalises a tag for lookup. A Caser is stateful, so each call
// gets its own.
func foldTag(tag string) string {
	return cases.Fold().String(tag)
}

// Register adds a translator for tag.
func (r *Registry) Register(tag string, fn TranslateFunc) error {
	key := foldTag(tag)
	if _, ok := r.translators[key]; ok {
		return fmt.Errorf("register %q: %w", tag, ErrDuplicateTranslator)
	}
	r.translators[key] = fn
	return nil
}

// Lookup returns the translator for tag.
func (r *Registry) Lookup(tag string) (TranslateFunc, bool) {
	fn, ok := r.translators[foldTag(tag)]
	return fn, ok
}

// Tags returns the registered tags in sorted order.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.translators))
	for tag := range r.translators {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// NewDefaultRegistry returns a registry with translators for every form the
// codec produces except MINUS, which has no operator and degrades to Unit.
//
// "query" redirects on the query type, so "ask", "select", "construct" and
// "describe" are registered as second-level tags.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, e := range []struct {
		tag string
		fn  TranslateFunc
	}{
		{form.TagQuery, translateQuery},
		{form.QueryAsk, translateAsk},
		{form.QuerySelect, translateSelect},
		{form.QueryConstruct, translateConstruct},
		{form.QueryDescribe, translateDescribe},
		{form.TagGroup, translateGroup},
		{form.TagBGP, translateBGP},
		{form.TagFilter, translateFilter},
		{form.TagBind, translateBind},
		{form.TagOptional, translateOptional},
		{form.TagUnion, translateUnion},
		{form.TagValues, translateValues},
		{form.TagGraph, translateGraph},
		{form.TagService, translateService},
	} {
		if err := r.Register(e.tag, e.fn); err != nil {
			panic(err)
		}
	}
	return r
}

// Fallback records a form that was replaced by a Unit placeholder.
type Fallback struct {
	Node   NodeID
	Tag    string
	Reason string
}

// Result is the outcome of a translation.
type Result struct {
	Root      NodeID
	Fallbacks []Fallback
}

// OK reports whether every form translated without falling back.
func (r Result) OK() bool { return len(r.Fallbacks) == 0 }

// Translation is the state of one translation pass. Translators use it to
// recurse into nested forms.
type Translation struct {
	tree      *Tree
	registry  *Registry
	fallbacks []Fallback
}

// Tree returns the tree nodes are added to.
func (tx *Translation) Tree() *Tree { return tx.tree }

// Translate converts f into nodes of t and returns the root. It never fails:
// forms without a translator, or whose translator rejects them, become Unit
// nodes listed in Result.Fallbacks.
func (t *Tree) Translate(reg *Registry, f form.Form) Result {
	if q, ok := f.(*form.Query); ok {
		t.mergePrefixes(q.Prefixes)
	}
	tx := &Translation{tree: t, registry: reg}
	root := tx.Form(f)
	t.resolveDimensions(root)
	return Result{Root: root, Fallbacks: tx.fallbacks}
}

// TranslateWhere converts a flat where list into one chain.
func (t *Tree) TranslateWhere(reg *Registry, patterns []form.Pattern) Result {
	tx := &Translation{tree: t, registry: reg}
	root := tx.Where(patterns)
	t.resolveDimensions(root)
	return Result{Root: root, Fallbacks: tx.fallbacks}
}

func (t *Tree) mergePrefixes(ps []form.Prefix) {
	for _, p := range ps {
		known := false
		for _, q := range t.Prefixes {
			if q.Name == p.Name {
				known = true
				break
			}
		}
		if !known {
			t.Prefixes = append(t.Prefixes, p)
		}
	}
}

func tagOf(f form.Form) string {
	if f == nil {
		return ""
	}
	return f.Type()
}

// Form dispatches f through the registry. The parsed form is attached to
// the resulting node unless a nested translation already attached one.
func (tx *Translation) Form(f form.Form) NodeID {
	tag := tagOf(f)
	fn, ok := tx.registry.Lookup(tag)
	if !ok {
		return tx.fallback(f, tag, fmt.Sprintf("no translator for %q", tag))
	}
	id, err := fn(tx, f)
	if err != nil {
		return tx.fallback(f, tag, err.Error())
	}
	if n := tx.tree.Node(id); n != nil && n.Form == nil {
		n.Form = f
	}
	return id
}

// Where folds patterns into a chain. Each translated node takes the running
// accumulator as its source, except group patterns, which are joined:
// Join(source=accumulator, child=group). The last pattern ends up
// outermost.
func (tx *Translation) Where(patterns []form.Pattern) NodeID {
	acc := None
	for _, p := range patterns {
		id := tx.Form(p)
		n := tx.tree.Node(id)
		switch {
		case foldTag(tagOf(p)) == form.TagGroup:
			acc = tx.tree.Add(&Join{}, acc, id)
		case n.Source != None && acc != None:
			// a subquery already heads its own where chain
			acc = tx.tree.Add(&Join{}, acc, id)
		default:
			if acc != None {
				n.Source = acc
			}
			acc = id
		}
	}
	return acc
}

func (tx *Translation) fallback(f form.Form, tag, reason string) NodeID {
	id := tx.tree.Add(&Unit{Form: f}, None, None)
	tx.tree.Node(id).Form = f
	tx.fallbacks = append(tx.fallbacks, Fallback{Node: id, Tag: tag, Reason: reason})
	tx.tree.logger.Warn("translation fell back to unit",
		"tag", tag,
		"reason", reason,
		"node", id)
	return id
}

func asQuery(f form.Form) (*form.Query, error) {
	q, ok := f.(*form.Query)
	if !ok {
		return nil, fmt.Errorf("expected query form, got %T", f)
	}
	return q, nil
}

func translateQuery(tx *Translation, f form.Form) (NodeID, error) {
	q, err := asQuery(f)
	if err != nil {
		return None, err
	}
	fn, ok := tx.registry.Lookup(q.QueryType)
	if !ok {
		return None, fmt.Errorf("no translator for query type %q", q.QueryType)
	}
	return fn(tx, q)
}

func translateSelect(tx *Translation, f form.Form) (NodeID, error) {
	q, err := asQuery(f)
	if err != nil {
		return None, err
	}
	where := tx.Where(q.Where)
	if q.IsWildcard() && !q.HasModifiers() && where != None {
		return where, nil
	}
	return tx.tree.Add(&Select{Projections: q.Variables, Modifiers: modifiersOf(q)}, where, None), nil
}

func translateAsk(tx *Translation, f form.Form) (NodeID, error) {
	q, err := asQuery(f)
	if err != nil {
		return None, err
	}
	where := tx.Where(q.Where)
	return tx.tree.Add(&Ask{Modifiers: modifiersOf(q)}, where, None), nil
}

func translateConstruct(tx *Translation, f form.Form) (NodeID, error) {
	q, err := asQuery(f)
	if err != nil {
		return None, err
	}
	where := tx.Where(q.Where)
	c := &Construct{Template: append([]rdf.Triple(nil), q.Template...), Modifiers: modifiersOf(q)}
	return tx.tree.Add(c, where, None), nil
}

// translateDescribe splits the described terms into bound dimensions and
// constant IRIs.
func translateDescribe(tx *Translation, f form.Form) (NodeID, error) {
	q, err := asQuery(f)
	if err != nil {
		return None, err
	}
	d := &Describe{Modifiers: modifiersOf(q)}
	var dims []string
	for _, p := range q.Variables {
		switch term := p.Term.(type) {
		case rdf.Variable:
			dims = append(dims, term.Value)
		case rdf.NamedNode:
			d.Constants = append(d.Constants, term)
		}
	}
	where := tx.Where(q.Where)
	id := tx.tree.Add(d, where, None)
	tx.tree.Node(id).Dimensions = dims
	return id, nil
}

func translateGroup(tx *Translation, f form.Form) (NodeID, error) {
	g, ok := f.(*form.Group)
	if !ok {
		return None, fmt.Errorf("expected group form, got %T", f)
	}
	id := tx.Where(g.Patterns)
	if id == None {
		id = tx.tree.Add(&Unit{}, None, None)
	}
	return id, nil
}

// translateBGP accepts a bgp, or a group wrapping exactly one bgp.
func translateBGP(tx *Translation, f form.Form) (NodeID, error) {
	var triples []rdf.Triple
	switch v := f.(type) {
	case *form.BGP:
		triples = v.Triples
	case *form.Group:
		if len(v.Patterns) != 1 {
			return None, fmt.Errorf("bgp group has %d patterns, want 1", len(v.Patterns))
		}
		b, ok := v.Patterns[0].(*form.BGP)
		if !ok {
			return None, fmt.Errorf("bgp group wraps %s", tagOf(v.Patterns[0]))
		}
		triples = b.Triples
	default:
		return None, fmt.Errorf("expected bgp form, got %T", f)
	}
	return tx.tree.Add(NewBGP(triples), None, None), nil
}

func translateFilter(tx *Translation, f form.Form) (NodeID, error) {
	v, ok := f.(*form.Filter)
	if !ok {
		return None, fmt.Errorf("expected filter form, got %T", f)
	}
	return tx.tree.Add(&Filter{Expression: v.Expression}, None, None), nil
}

func translateBind(tx *Translation, f form.Form) (NodeID, error) {
	v, ok := f.(*form.Bind)
	if !ok {
		return None, fmt.Errorf("expected bind form, got %T", f)
	}
	return tx.tree.Add(&Extend{Variable: v.Variable.Value, Expression: v.Expression}, None, None), nil
}

func translateOptional(tx *Translation, f form.Form) (NodeID, error) {
	v, ok := f.(*form.Optional)
	if !ok {
		return None, fmt.Errorf("expected optional form, got %T", f)
	}
	child := tx.Where(v.Patterns)
	return tx.tree.Add(&Optional{}, None, child), nil
}

// translateUnion requires exactly two branches: the first becomes the
// complement, the second the child.
func translateUnion(tx *Translation, f form.Form) (NodeID, error) {
	v, ok := f.(*form.Union)
	if !ok {
		return None, fmt.Errorf("expected union form, got %T", f)
	}
	if len(v.Patterns) != 2 {
		return None, fmt.Errorf("union has %d patterns, want 2", len(v.Patterns))
	}
	complement := tx.Form(v.Patterns[0])
	child := tx.Form(v.Patterns[1])
	id := tx.tree.Add(&Union{}, None, child)
	tx.tree.Node(id).Complement = complement
	return id, nil
}

func translateValues(tx *Translation, f form.Form) (NodeID, error) {
	v, ok := f.(*form.Values)
	if !ok {
		return None, fmt.Errorf("expected values form, got %T", f)
	}
	vals := &Values{Variables: make([]string, 0, len(v.Variables))}
	for _, name := range v.Variables {
		vals.Variables = append(vals.Variables, name.Value)
	}
	for _, row := range v.Rows {
		cp := make(map[string]rdf.Term, len(row))
		for k, term := range row {
			cp[k] = term
		}
		vals.Rows = append(vals.Rows, cp)
	}
	return tx.tree.Add(vals, None, None), nil
}

func translateGraph(tx *Translation, f form.Form) (NodeID, error) {
	v, ok := f.(*form.Graph)
	if !ok {
		return None, fmt.Errorf("expected graph form, got %T", f)
	}
	child := tx.Where(v.Patterns)
	return tx.tree.Add(&Graph{Name: v.Name}, None, child), nil
}

// translateService requires exactly one wrapped pattern.
func translateService(tx *Translation, f form.Form) (NodeID, error) {
	v, ok := f.(*form.Service)
	if !ok {
		return None, fmt.Errorf("expected service form, got %T", f)
	}
	if len(v.Patterns) != 1 {
		return None, fmt.Errorf("service has %d patterns, want 1", len(v.Patterns))
	}
	child := tx.Form(v.Patterns[0])
	return tx.tree.Add(&Service{Name: v.Name, Silent: v.Silent}, None, child), nil
}
