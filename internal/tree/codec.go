package tree

import (
	"encoding/json"
	"fmt"
)

// ContentType is the media type of a serialized graph document.
const ContentType = "application/vnd.ldesmirror.graph+json"

// MarshalGraph serializes g as canonical JSON:
//
//	{"triples":[{"o":{"kind":"literal","type":"…","value":"…"},"p":"…","s":{"kind":"iri","value":"…"}}]}
//
// Triples are normalized first, so equal graphs produce equal bytes.
func MarshalGraph(g Graph) ([]byte, error) {
	norm := g.Normalize()
	triples := make([]any, len(norm))
	for i, t := range norm {
		triples[i] = map[string]any{
			"s": termObject(t.Subject),
			"p": t.Predicate,
			"o": termObject(t.Object),
		}
	}
	return MarshalCanonical(map[string]any{"triples": triples})
}

func termObject(t Term) map[string]any {
	obj := map[string]any{
		"kind":  t.Kind.String(),
		"value": t.Value,
	}
	if t.Datatype != "" {
		obj["type"] = t.Datatype
	}
	return obj
}

type wireTerm struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

type wireTriple struct {
	S wireTerm `json:"s"`
	P string   `json:"p"`
	O wireTerm `json:"o"`
}

type wireGraph struct {
	Triples []wireTriple `json:"triples"`
}

// UnmarshalGraph parses a document produced by MarshalGraph.
func UnmarshalGraph(data []byte) (Graph, error) {
	var doc wireGraph
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal graph: %w", err)
	}

	g := make(Graph, 0, len(doc.Triples))
	for i, wt := range doc.Triples {
		s, err := wt.S.term()
		if err != nil {
			return nil, fmt.Errorf("triple[%d] subject: %w", i, err)
		}
		if s.Kind == KindLiteral {
			return nil, fmt.Errorf("triple[%d]: literal subject", i)
		}
		if wt.P == "" {
			return nil, fmt.Errorf("triple[%d]: empty predicate", i)
		}
		o, err := wt.O.term()
		if err != nil {
			return nil, fmt.Errorf("triple[%d] object: %w", i, err)
		}
		g = append(g, T(s, wt.P, o))
	}
	return g.Normalize(), nil
}

func (w wireTerm) term() (Term, error) {
	kind, err := ParseTermKind(w.Kind)
	if err != nil {
		return Term{}, err
	}
	if kind == KindLiteral {
		return Literal(w.Value, w.Type), nil
	}
	return Term{Kind: kind, Value: w.Value}, nil
}
