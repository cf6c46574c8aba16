package algebra

import (
	"strings"

	"github.com/roach88/sparqlayers/internal/codec"
	"github.com/roach88/sparqlayers/internal/form"
	"github.com/roach88/sparqlayers/internal/rdf"
)

// Format renders the subtree at root as an indented outline, one node per
// line:
//
//	filter FILTER(?o != 0) [s p o]
//	  source: bgp ?s ?p ?o . [s p o]
//
// Node keys are omitted so the output is stable across runs.
func Format(t *Tree, root NodeID) string {
	var sb strings.Builder
	formatNode(t, &sb, root, "", 0)
	return sb.String()
}

func formatNode(t *Tree, sb *strings.Builder, id NodeID, rel string, depth int) {
	n := t.Node(id)
	if n == nil {
		return
	}
	sb.WriteString(strings.Repeat("  ", depth))
	if rel != "" {
		sb.WriteString(rel)
		sb.WriteString(": ")
	}
	sb.WriteString(string(n.Kind()))
	if s := summary(t, n); s != "" {
		sb.WriteString(" ")
		sb.WriteString(s)
	}
	if len(n.Dimensions) > 0 {
		sb.WriteString(" [")
		sb.WriteString(strings.Join(n.Dimensions, " "))
		sb.WriteString("]")
	}
	sb.WriteString("\n")

	formatNode(t, sb, n.Source, "source", depth+1)
	formatNode(t, sb, n.Child, "child", depth+1)
	formatNode(t, sb, n.Complement, "complement", depth+1)
}

func summary(t *Tree, n *Node) string {
	switch p := n.Payload.(type) {
	case *BGP, *Extend, *Filter, *Values:
		return collapsed(t.ComputeForm(n.ID))
	case *Unit:
		if p.Form == nil {
			return ""
		}
		return "(" + p.Form.Type() + ")"
	case *Graph:
		return p.Name.String()
	case *Service:
		if p.Silent {
			return "SILENT " + p.Name.String()
		}
		return p.Name.String()
	case *Select:
		names := make([]string, 0, len(p.Projections))
		for _, proj := range p.Projections {
			if proj.Term != nil && !rdf.IsWildcard(proj.Term) {
				names = append(names, proj.Term.String())
			}
		}
		return strings.Join(names, " ")
	}
	return ""
}

func collapsed(f form.Form) string {
	text, err := codec.Generate(f)
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}
