// Package api serves the HTTP surface used by the browser scanner UI.
//
// Routes:
//
//	GET    /healthz                 liveness
//	GET    /readyz                  collection reachable
//	GET    /api/lookup?q=<input>    run the lookup cascade
//	GET    /api/movies?filter=<q>   list the collection
//	POST   /api/movies              add a chosen candidate
//	DELETE /api/movies              remove matching records
//
// Every response carries an X-Request-Id header; the id is attached to the
// request context so log lines from the cascade and store share it. Error
// bodies carry the short status text shown to the person scanning.
//
// DTOs use snake_case JSON tags so the collection document and API payloads
// share field names.
package api
