// Package chrome hosts the injection pipeline inside a real Chrome process.
//
// The Host launches Chrome with the bypass engine's switches, attaches to
// every page target and translates DevTools events into navigation.Listener
// calls. It also implements navigation.Views and navigation.Sink, so the hub
// can query readiness and evaluate batches without knowing about CDP.
//
// Paused responses are resumed with headers rewritten by bypass.Engine, and
// permission prompts are granted once for the whole browser context when the
// policy says so.
package chrome
