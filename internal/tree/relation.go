package tree

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// Relation is a boundary-labelled pointer from a node to a page.
// Value is the inclusive lower bound of the page on Path. Literal is the
// tree:value term as read from the source; it is written back unchanged and
// never compared.
type Relation struct {
	Node    string
	Kind    string
	Path    string
	Value   time.Time
	Literal Term
}

// ValueLiteral returns the term recording Value: Literal when set,
// otherwise Value as an xsd:dateTime literal.
func (r Relation) ValueLiteral() Term {
	if !r.Literal.IsZero() {
		return r.Literal
	}
	return TimeLiteral(r.Value)
}

// IncompleteRelationError reports a relation record that lacks one of
// rdf:type, tree:node, tree:path or tree:value.
type IncompleteRelationError struct {
	Node     string
	Relation string
	Missing  string
}

func (e *IncompleteRelationError) Error() string {
	return fmt.Sprintf("relation %s of %s has no %s", e.Relation, e.Node, e.Missing)
}

// ParseRelations returns the relations declared by node in g, ordered by
// boundary value and then by target locator.
func ParseRelations(g Graph, node string) ([]Relation, error) {
	var out []Relation
	for _, subject := range g.Objects(IRI(node), TreeRelation) {
		r, err := parseRelation(g, node, subject)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	slices.SortFunc(out, compareRelations)
	return out, nil
}

func parseRelation(g Graph, node string, subject Term) (Relation, error) {
	missing := func(what string) error {
		return &IncompleteRelationError{Node: node, Relation: subject.String(), Missing: what}
	}

	kind, ok := g.Object(subject, RDFType)
	if !ok {
		return Relation{}, missing("rdf:type")
	}
	target, ok := g.Object(subject, TreeNodeRef)
	if !ok || target.Kind != KindIRI {
		return Relation{}, missing("tree:node")
	}
	path, ok := g.Object(subject, TreePath)
	if !ok {
		return Relation{}, missing("tree:path")
	}
	value, ok := g.Object(subject, TreeValue)
	if !ok {
		return Relation{}, missing("tree:value")
	}
	bound, err := ParseTime(value.Value)
	if err != nil {
		return Relation{}, fmt.Errorf("relation %s of %s: %w", subject, node, err)
	}

	return Relation{
		Node:    target.Value,
		Kind:    kind.Value,
		Path:    path.Value,
		Value:   bound,
		Literal: value,
	}, nil
}

func compareRelations(a, b Relation) int {
	if c := a.Value.Compare(b.Value); c != 0 {
		return c
	}
	return cmp.Compare(a.Node, b.Node)
}

// RelationTriples returns the records describing r as a relation of view.
// The relation subject is a blank node labelled by RelationLabel.
func RelationTriples(view string, r Relation) ([]Triple, error) {
	label, err := RelationLabel(r)
	if err != nil {
		return nil, err
	}
	b := Blank(label)
	return []Triple{
		T(IRI(view), TreeRelation, b),
		T(b, RDFType, IRI(r.Kind)),
		T(b, TreeNodeRef, IRI(r.Node)),
		T(b, TreePath, IRI(r.Path)),
		T(b, TreeValue, r.ValueLiteral()),
	}, nil
}
