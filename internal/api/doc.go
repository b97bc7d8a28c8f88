// Package api hosts the HTTP handlers that front the Sitebridge automation
// API.
//
// The handlers assembled by Handler coordinate request validation, media
// import orchestration, and response shaping while delegating persistence to
// storage.Repository implementations injected at construction time. The
// package does not reach for globals or singletons and expects callers to
// supply fully configured dependencies.
//
// Asynchronous image imports flow through ImportProcessor: handlers persist an
// import context, enqueue the job, and return once it has been issued; the
// processor completes the field write-back later. This keeps endpoint
// behaviour testable and the async linkage explicit.
//
// Handler implementations assume upstream middleware from internal/server has
// already enforced shared-secret authorization, metrics, auditing, and logging
// concerns. New routes should preserve that contract by avoiding duplicate
// validation and by leaning on the middleware guarantees established in the
// server stack.
package api
