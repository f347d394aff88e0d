// Package harness runs mirror sync scenarios described in YAML.
//
// A scenario builds a source log, then runs a sequence of steps against a
// fresh in-memory SQLite mirror with a fake clock and sequential cycle IDs,
// so every run of a scenario produces the same mirror.
//
// # Scenario Format
//
//	name: incremental_open_page
//	description: "New members of the open page are appended"
//	concurrency: 2
//	setup:
//	  - page: "1000"
//	    boundary: -72h
//	    members:
//	      - {name: a, at: -71h}
//	steps:
//	  - sync:
//	      mode: bootstrap
//	      members_written: 1
//	  - add_member: {page: "1000", name: b, at: 1h}
//	  - advance: 2h
//	  - fail_writes: ["1000"]
//	  - heal: true
//	  - sync:
//	      error: MALFORMED_SOURCE
//	assertions:
//	  - type: relations
//	    pages: ["1000"]
//	  - type: fragment
//	    page: "1000"
//	    members: [a, b]
//	  - type: recent
//	    members: ["1000/b", "1000/a"]
//	  - type: cursor
//	    at: 2h
//
// Times are offsets from testutil.Epoch in time.ParseDuration syntax. Pages
// are named; "root" names the source root in fail_reads and the mirror root
// in fail_writes.
//
// # Assertion Types
//
//   - relations: the mirror root links exactly the named pages
//   - fragment: the fragment of a page holds exactly the named members
//   - recent: mirror.Recent returns the named members in order
//   - cursor: the mirror cursor is at the given offset
//   - bootstrapped: whether the mirror root exists
package harness
