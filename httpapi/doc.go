// Package httpapi exposes the session registry and message delivery
// pipeline as a REST facade.
//
// # Overview
//
// The facade maps each domain operation onto one route: session
// lifecycle under /session and /sessions, delivery under /send,
// /send-bulk, /check-number, /send-contact and /set-typing, and
// roster lookups under /groups and /contacts. Requests are validated
// before they reach the domain layer, so malformed input never costs
// a network attempt.
//
// All routes except /healthz and /metrics sit behind optional API key
// authentication and per-client-IP rate limiting. Domain errors map
// onto HTTP statuses: an unknown session is 404, an operation on a
// session that is not connected is 409, exhausted delivery retries
// are 500.
package httpapi
