// Package source reads a remote log as a pull stream of events.
//
// Open returns a Stream. The first call to Next fetches the root and yields
// an EventRoot carrying its relations. Each following call yields one
// EventPage per relation, in relation order (boundary value, then locator).
// When every page has been yielded Next returns io.EOF.
//
// Pages are prefetched concurrently with a bounded worker group, so slow
// pages do not serialize the crawl, but events are always delivered in the
// same order for the same source content.
//
// A root that cannot be fetched or parsed ends the stream with an error.
// A page that cannot be fetched is delivered as an event with Err set; the
// consumer decides whether that is fatal.
package source
