// Package internal holds the registration server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, response envelope, and routing
// - domain: registrations, payments, uploads, and admins
// - storage: Postgres repositories and migrations
// - jobs: River workers for confirmation emails and rate limit cleanup
// - payment, media, email: Razorpay, Cloudinary, and Resend clients
// - auth, audit, config, metrics, ratelimit, sanitize, telemetry: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
