// Package server assembles the local control API: middleware, routes, the
// delivery event stream and the Prometheus endpoint.
//
//	GET    /health
//	GET    /v1/policy
//	GET    /v1/tabs
//	POST   /v1/tabs        {"url": "example.com"}
//	DELETE /v1/tabs/:id
//	GET    /v1/events      websocket
//	GET    /metrics
package server
