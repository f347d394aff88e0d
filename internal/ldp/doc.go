// Package ldp exposes resource stores over HTTP.
//
// Client implements resource.Store against any server that speaks the graph
// document format from package tree; Handler is such a server for an
// arbitrary resource.Store.
//
// # Protocol
//
//	GET    <locator>   200 graph document, 404 when absent
//	PUT    <locator>   201 when created, 205 when replaced
//	PATCH  <locator>   205 when applied, 409 when a deleted triple is missing
//	POST   <container> 201 with the child locator in Location
//
// Graph bodies use tree.ContentType. Patch bodies use PatchContentType and
// carry two graph documents under "insert" and "delete".
//
// Locators are absolute URLs. The Handler maps a request to the locator
// formed by its origin and the request path.
package ldp
