package tree

// Namespaces used by source logs and mirrors.
const (
	NamespaceTREE = "https://w3id.org/tree#"
	NamespaceDCT  = "http://purl.org/dc/terms/"
	NamespaceLDP  = "http://www.w3.org/ns/ldp#"
	NamespaceRDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NamespaceXSD  = "http://www.w3.org/2001/XMLSchema#"
)

// TREE terms.
const (
	TreeCollection = NamespaceTREE + "Collection"
	TreeNode       = NamespaceTREE + "Node"
	TreeView       = NamespaceTREE + "view"
	TreeMember     = NamespaceTREE + "member"
	TreeRelation   = NamespaceTREE + "relation"
	TreeNodeRef    = NamespaceTREE + "node"
	TreePath       = NamespaceTREE + "path"
	TreeValue      = NamespaceTREE + "value"
	TreeShape      = NamespaceTREE + "shape"

	TreeGreaterThanOrEqualToRelation = NamespaceTREE + "GreaterThanOrEqualToRelation"
)

// Dublin Core, LDP, RDF and XSD terms.
const (
	DCTModified = NamespaceDCT + "modified"
	DCTIssued   = NamespaceDCT + "issued"

	LDPContains  = NamespaceLDP + "contains"
	LDPContainer = NamespaceLDP + "Container"
	LDPResource  = NamespaceLDP + "Resource"

	RDFType = NamespaceRDF + "type"

	XSDDateTime = NamespaceXSD + "dateTime"
	XSDString   = NamespaceXSD + "string"
)

// CollectionFragment is the fragment identifier of the collection
// declaration inside a root resource ("<root>#Collection").
const CollectionFragment = "#Collection"

// CollectionOf returns the collection IRI declared by a root resource.
func CollectionOf(root string) string {
	return root + CollectionFragment
}
