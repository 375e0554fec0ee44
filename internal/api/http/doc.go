// Package http implements the local control API handlers.
//
// Routes are registered by the server package; handlers here only translate
// between JSON and the browser host, hub, matcher and policy store.
package http
