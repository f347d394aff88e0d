package tree

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-derived identifiers.
// The version suffix leaves room for changing the algorithm later.
const (
	DomainRelation = "ldesmirror/relation/v1"
	DomainGraph    = "ldesmirror/graph/v1"
)

// relationLabelLength is the number of hex characters kept for blank node labels.
const relationLabelLength = 16

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RelationLabel returns the blank node label used for a relation record.
// Two records describing the same relation always get the same label, which
// is what keeps repeated commits of a relation idempotent.
func RelationLabel(r Relation) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"kind":  r.Kind,
		"node":  r.Node,
		"path":  r.Path,
		"value": r.ValueLiteral().Value,
	})
	if err != nil {
		return "", fmt.Errorf("RelationLabel: failed to marshal: %w", err)
	}
	return "r" + hashWithDomain(DomainRelation, canonical)[:relationLabelLength], nil
}

// GraphDigest returns a stable digest of a graph's content.
// Ordering and duplicates in g do not affect the result.
func GraphDigest(g Graph) (string, error) {
	data, err := MarshalGraph(g)
	if err != nil {
		return "", fmt.Errorf("GraphDigest: %w", err)
	}
	return hashWithDomain(DomainGraph, data), nil
}

// MustRelationLabel is like RelationLabel but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRelationLabel(r Relation) string {
	label, err := RelationLabel(r)
	if err != nil {
		panic(err)
	}
	return label
}
