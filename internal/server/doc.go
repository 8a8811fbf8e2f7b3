// Package server exposes a study session as a small JSON API for a web
// front-end, with per-client rate limiting, request IDs, gzip compression
// and a server-sent event stream of state snapshots.
package server
