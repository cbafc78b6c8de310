// Package handlers provides HTTP request handlers for the video library API.
//
// It includes handlers for:
//   - Byte-range video streaming, stream info and subtitles
//   - Catalog listing, lookup and removal
//   - Admin operations: scan, convert, metadata refresh
//   - Health checks, version and Prometheus metrics
package handlers
