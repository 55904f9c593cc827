// Package actor provides the caller identity middleware for the web API.
//
// Authentication happens upstream; the gateway forwards the verified caller
// in the X-Actor header. The middleware performs the following tasks:
//   - Rejects mutating requests without an actor with 400
//   - Stores the actor in fiber.Locals for handlers and the access log
//   - Lets read-only requests through without an actor
//
// Usage:
//
//	api.Use(actor.Middleware)
package actor
