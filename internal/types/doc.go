// Package types provides the identifiers and small value types shared by the
// injection pipeline packages.
//
// Core Types:
//   - ContextID: a tab or top-level frame owned by the host
//   - FrameID: a sub-frame inside a context
//   - Readiness: document loading state (loading, interactive, complete)
//   - NavigableContext: snapshot of a context as seen by the core
package types
