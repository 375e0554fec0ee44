// Package monitoring provides Prometheus metrics for the injection pipeline.
//
// Collectors are registered on an explicit registry so tests and embedded
// hosts can create as many Metrics as they need. All Record methods accept a
// nil receiver.
//
// Metric Families:
//   - shell_match_*: matcher queries and latency
//   - shell_scripts_total, shell_batches_total: delivery state machine
//   - shell_bypass_*: header rewrites and permission decisions
//   - shell_http_*: control API requests
//
// Example Usage:
//
//	metrics := monitoring.NewMetrics()
//	router.Use(monitoring.Middleware(metrics))
//	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Gatherer(), promhttp.HandlerOpts{})))
package monitoring
