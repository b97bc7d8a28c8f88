// Package server hosts the automation-facing HTTP endpoints behind a single
// multiplexer.
//
// The server builds a consistent middleware chain of request IDs, logging,
// audit, metrics, rate limiting, and shared-secret auth so every endpoint
// shares the same protections and instrumentation. Health and metrics routes
// stay outside the auth gate so probes and scrapers never need the secret.
package server
