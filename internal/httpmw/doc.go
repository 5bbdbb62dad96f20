// Package httpmw provides HTTP middleware for the public-facing server.
//
// httpserver.NewHandler composes them outermost first: panic recovery,
// security headers, request ID, client IP extraction, rate limiting,
// OTEL tracing, trace response headers, metrics, structured logging,
// content-kind annotation and the chi router.
//
// Query strings, user agents and other user-supplied headers are kept out
// of log fields.
package httpmw
