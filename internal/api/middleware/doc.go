// Package middleware holds the gin middleware of the control API.
//
//   - CORS: loopback origins by default, explicit origins when configured
//   - RateLimit: per-IP token bucket with idle client eviction
//   - GlobalRateLimit: one bucket for every caller
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
