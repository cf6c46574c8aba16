package form

import (
	"fmt"

	"github.com/roach88/sparqlayers/internal/rdf"
)

// ValidationResult reports constructs that parse but that the algebra can
// only render in degraded form.
type ValidationResult struct {
	// Clean is true when no warnings were produced.
	Clean bool

	// Warnings lists each degraded or suspicious construct.
	Warnings []string
}

// Validate walks a form and collects warnings. It never fails: every parsed
// form can be translated, some only into a placeholder operator.
//
// Validate is a pure function with no side effects.
func Validate(f Form) ValidationResult {
	v := &validator{warnings: []string{}}
	v.validateForm(f)

	return ValidationResult{
		Clean:    len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateForm(f Form) {
	if f == nil {
		v.addWarning("nil form")
		return
	}
	switch x := f.(type) {
	case *Query:
		v.validateQuery(x)
	case Pattern:
		v.validatePattern(x)
	default:
		v.addWarning("unknown form type: %T", f)
	}
}

func (v *validator) validateQuery(q *Query) {
	switch q.QueryType {
	case QueryAsk, QuerySelect, QueryConstruct, QueryDescribe:
	default:
		v.addWarning("unknown query type %q", q.QueryType)
	}

	if q.QueryType == QuerySelect {
		if q.IsWildcard() && len(q.GroupBy) > 0 {
			v.addWarning("SELECT * with GROUP BY")
		}
		inScope := make(map[string]bool)
		for _, name := range InScope(q.Where) {
			inScope[name] = true
		}
		for _, p := range q.Variables {
			if p.Expression != nil {
				continue
			}
			if name, ok := rdf.VariableName(p.Term); ok && !inScope[name] {
				v.addWarning("projected variable ?%s is not bound in the where clause", name)
			}
		}
	}

	v.validatePatterns(q.Where)
}

func (v *validator) validatePatterns(ps []Pattern) {
	for _, p := range ps {
		v.validatePattern(p)
	}
}

func (v *validator) validatePattern(p Pattern) {
	switch x := p.(type) {
	case *BGP, *Filter, *Bind, *Values:
	case *Group:
		v.validatePatterns(x.Patterns)
	case *Optional:
		v.validatePatterns(x.Patterns)
	case *Minus:
		v.addWarning("MINUS is kept as an opaque unit")
		v.validatePatterns(x.Patterns)
	case *Union:
		if len(x.Patterns) != 2 {
			v.addWarning("UNION with %d branches is kept as an opaque unit", len(x.Patterns))
		}
		v.validatePatterns(x.Patterns)
	case *Graph:
		v.validatePatterns(x.Patterns)
	case *Service:
		if len(x.Patterns) != 1 {
			v.addWarning("SERVICE with %d patterns is kept as an opaque unit", len(x.Patterns))
		}
		v.validatePatterns(x.Patterns)
	case *Query:
		v.validateQuery(x)
	case *Opaque:
		v.addWarning("unrecognized form %q", x.Tag)
	default:
		v.addWarning("unknown pattern type: %T", p)
	}
}
