// Package navigation connects host navigation events to script injection.
//
// The host drives a Hub through the Listener methods. Hub.Run is the only
// goroutine that touches per-context state: it filters URLs, starts match
// queries on their own goroutines, feeds results to the injection scheduler
// and hands batches to a per-context delivery worker that executes them in
// order through the Sink.
//
// A top-level navigation resets delivery history synchronously, before the
// match query for the new document is issued. Results that arrive for a
// destroyed context or a replaced document are dropped. A delivery into a
// context that has gone away is abandoned without error; other failures are
// logged and never retried.
package navigation
