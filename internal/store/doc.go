// Package store provides a SQLite-backed resource.Store.
//
// Each resource is a row in resources and owns its triples. Triples are
// unique per resource, so every insert uses ON CONFLICT DO NOTHING and
// repeated writes converge to the same content.
//
// Put and Patch run inside a single transaction. A Patch whose delete set is
// not fully present rolls back and returns resource.ErrConflict.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Triples are removed with their resource
package store
