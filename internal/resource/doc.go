// Package resource defines the storage contract shared by every mirror target.
//
// A resource is a graph addressed by a locator. Stores support whole-resource
// replacement (Put), atomic append/delete patches (Patch), and creation of
// uniquely named children inside a container (CreateChild).
//
// Three implementations exist:
//   - Memory, an in-process map used by tests and dry runs
//   - store.Store, a SQLite database
//   - ldp.Client, a remote LDP server over HTTP
//
// Writes have set semantics: inserting a triple that is already present is a
// no-op, so repeating a write never duplicates content.
package resource
