// Package mirror keeps a lightweight index of a remote log up to date.
//
// The remote log is a root resource whose relations point at pages. Every
// page covers a time range starting at its relation's boundary value and
// lists the members created in that range. The mirror records, per page,
// which members exist and when they were created, plus one mirror root that
// holds the translated relations and a cursor: the start time of the last
// committed cycle.
//
// SYNC CYCLE:
//
// Engine.Synchronize reads the mirror root first.
//
// Bootstrap (no mirror root): every page is mirrored in full, then the mirror
// root is created with the relations of the pages that were written and the
// cycle start time as cursor.
//
// Incremental (mirror root present): the cursor and the relation index are
// read from the mirror root. Pages the index does not know are mirrored in
// full. The open page, the indexed page with the greatest boundary, is
// re-scanned and only members created after the cursor are appended. Every
// other indexed page is closed and skipped.
//
// Commit: one patch on the mirror root adds the relations of the newly
// written pages, adds the new cursor and removes the old one. The store
// applies it atomically, so the mirror root never holds two cursors. When
// the open page could not be refreshed nothing is committed and the next
// cycle re-scans from the same cursor.
//
// FAILURES:
//
// Structural errors (unreachable source root, malformed source or mirror,
// missing cursor, ambiguous open page) abort the cycle and are returned as
// *SyncError. A page that cannot be fetched or written is logged, counted in
// the Report and left for the next cycle. Writes have set semantics, so
// repeating a cycle never duplicates content.
package mirror
