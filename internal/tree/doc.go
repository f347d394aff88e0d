// Package tree provides the graph model shared by every ldesmirror package.
//
// Resources on both sides of a mirror are small RDF-style graphs: a list of
// triples whose subjects are IRIs or blank nodes and whose objects are IRIs,
// blank nodes or typed literals. The package knows the handful of TREE, LDP
// and Dublin Core terms needed to read a source log and to write its mirror.
//
// This package imports nothing internal. Every other package builds on it.
//
// Key constraints:
//   - Timestamps are xsd:dateTime literals in UTC with millisecond precision
//   - Serialized graphs use RFC 8785 canonical JSON so identical content is
//     byte-identical on the wire and in snapshots
//   - Relation records carry content-derived blank node labels, never random ones
package tree
