// Package middleware provides the HTTP middleware chain for the homeflix
// server: per-request access logging with log-injection sanitizing, gzip
// compression for the JSON and subtitle surfaces, and Prometheus request
// metrics. Media streaming responses pass through all three untouched.
package middleware
