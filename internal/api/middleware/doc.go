// Package middleware provides the HTTP middleware of the ReviewCanvas API.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing with configurable origins
//   - RateLimit: Per-IP token bucket rate limiting with idle eviction
//   - GlobalRateLimit: One shared bucket for expensive endpoints
//   - Authenticate / OptionalAuth: HS256 bearer tokens from the external
//     credential service, exposing the caller as a types.Identity
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
//	api.Use(middleware.OptionalAuth(verifier))
package middleware
