// Package notifications publishes collection change events.
//
// The default implementation publishes to NATS JetStream under the configured
// subject prefix ("<prefix>.movie.added", "<prefix>.movie.removed", ...) and
// degrades to a no-op when no NATS URL is configured. The enrichment
// collaborator subscribes to these subjects instead of polling the document.
//
// All callers depend only on the Service interface.
package notifications
