package tree

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
)

// TermKind distinguishes IRIs, blank nodes and literals.
type TermKind int

const (
	KindIRI TermKind = iota
	KindBlank
	KindLiteral
)

// String returns the wire name of the kind.
func (k TermKind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseTermKind is the inverse of TermKind.String.
func ParseTermKind(s string) (TermKind, error) {
	switch s {
	case "iri":
		return KindIRI, nil
	case "blank":
		return KindBlank, nil
	case "literal":
		return KindLiteral, nil
	default:
		return 0, fmt.Errorf("unknown term kind %q", s)
	}
}

// Term is a node or literal of a graph.
// Datatype is only meaningful for literals; an empty datatype means xsd:string.
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string
}

// IRI returns a named node.
func IRI(value string) Term {
	return Term{Kind: KindIRI, Value: value}
}

// Blank returns a blank node with the given label (without the "_:" prefix).
func Blank(label string) Term {
	return Term{Kind: KindBlank, Value: label}
}

// Literal returns a typed literal.
func Literal(value, datatype string) Term {
	if datatype == XSDString {
		datatype = ""
	}
	return Term{Kind: KindLiteral, Value: value, Datatype: datatype}
}

// IsZero reports whether t is the zero Term.
func (t Term) IsZero() bool {
	return t == (Term{})
}

// String renders the term in N-Triples syntax.
func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value + ">"
	case KindBlank:
		return "_:" + t.Value
	default:
		if t.Datatype == "" {
			return strconv.Quote(t.Value)
		}
		return strconv.Quote(t.Value) + "^^<" + t.Datatype + ">"
	}
}

// Triple is a single statement. Predicates are always IRIs.
type Triple struct {
	Subject   Term
	Predicate string
	Object    Term
}

// T is shorthand for constructing a Triple.
func T(subject Term, predicate string, object Term) Triple {
	return Triple{Subject: subject, Predicate: predicate, Object: object}
}

// String renders the triple as an N-Triples line without the trailing newline.
func (t Triple) String() string {
	return fmt.Sprintf("%s <%s> %s .", t.Subject, t.Predicate, t.Object)
}

// compareTerms orders terms by kind, value and datatype.
func compareTerms(a, b Term) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Value, b.Value); c != 0 {
		return c
	}
	return cmp.Compare(a.Datatype, b.Datatype)
}

// CompareTriples is the total order used for every serialized graph:
// subject, then predicate, then object.
func CompareTriples(a, b Triple) int {
	if c := compareTerms(a.Subject, b.Subject); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Predicate, b.Predicate); c != 0 {
		return c
	}
	return compareTerms(a.Object, b.Object)
}

// Graph is a set of triples. Order carries no meaning; use Normalize to get
// the canonical ordering without duplicates.
type Graph []Triple

// Normalize returns a sorted copy of g with duplicate triples removed.
func (g Graph) Normalize() Graph {
	out := slices.Clone(g)
	slices.SortFunc(out, CompareTriples)
	return slices.Compact(out)
}

// Has reports whether g contains t.
func (g Graph) Has(t Triple) bool {
	return slices.Contains(g, t)
}

// Objects returns the objects of every triple with the given subject and predicate,
// in canonical order.
func (g Graph) Objects(subject Term, predicate string) []Term {
	var out []Term
	for _, t := range g {
		if t.Subject == subject && t.Predicate == predicate {
			out = append(out, t.Object)
		}
	}
	slices.SortFunc(out, compareTerms)
	return slices.Compact(out)
}

// Object returns the first object (in canonical order) for subject and predicate.
func (g Graph) Object(subject Term, predicate string) (Term, bool) {
	objs := g.Objects(subject, predicate)
	if len(objs) == 0 {
		return Term{}, false
	}
	return objs[0], true
}

// Subjects returns the subjects of every triple with the given predicate and object.
func (g Graph) Subjects(predicate string, object Term) []Term {
	var out []Term
	for _, t := range g {
		if t.Predicate == predicate && t.Object == object {
			out = append(out, t.Subject)
		}
	}
	slices.SortFunc(out, compareTerms)
	return slices.Compact(out)
}

// WithPredicate returns every triple using predicate, in canonical order.
func (g Graph) WithPredicate(predicate string) Graph {
	var out Graph
	for _, t := range g {
		if t.Predicate == predicate {
			out = append(out, t)
		}
	}
	return out.Normalize()
}
