// Package tracing tags control API requests with a trace ID.
//
// An incoming X-Trace-ID header is reused when present, otherwise a new
// UUID is minted. The ID is echoed in the response, stored on the request
// context and attached to a per-request logger:
//
//	router.Use(tracing.Middleware(logger))
//
//	func handler(c *gin.Context) {
//		tracing.Logger(c.Request.Context()).Info("Tab opened")
//	}
package tracing
