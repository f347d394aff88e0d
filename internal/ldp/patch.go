package ldp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/ldesmirror/internal/tree"
)

// PatchContentType is the media type of a patch document.
const PatchContentType = "application/vnd.ldesmirror.patch+json"

type patchDocument struct {
	Insert json.RawMessage `json:"insert"`
	Delete json.RawMessage `json:"delete"`
}

// marshalPatch encodes a patch with keys in canonical order.
func marshalPatch(insert, del tree.Graph) ([]byte, error) {
	ins, err := tree.MarshalGraph(insert)
	if err != nil {
		return nil, fmt.Errorf("marshal insert: %w", err)
	}
	rm, err := tree.MarshalGraph(del)
	if err != nil {
		return nil, fmt.Errorf("marshal delete: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"delete":`)
	buf.Write(rm)
	buf.WriteString(`,"insert":`)
	buf.Write(ins)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func unmarshalPatch(data []byte) (insert, del tree.Graph, err error) {
	var doc patchDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("unmarshal patch: %w", err)
	}
	if len(doc.Insert) > 0 {
		if insert, err = tree.UnmarshalGraph(doc.Insert); err != nil {
			return nil, nil, fmt.Errorf("insert: %w", err)
		}
	}
	if len(doc.Delete) > 0 {
		if del, err = tree.UnmarshalGraph(doc.Delete); err != nil {
			return nil, nil, fmt.Errorf("delete: %w", err)
		}
	}
	return insert, del, nil
}
