// Package fetch wraps single HTTP requests with a hard per-request deadline
// and a bounded retry schedule.
//
// Do performs exactly one request and reads the body before the deadline
// expires; a slow collaborator surfaces as services.ErrNetworkTimeout.
// FetchJSON layers the retry policy on top: 5xx responses and transport
// failures are retried with a growing backoff, any other non-2xx status is
// reported as "no data" without retrying, and decode failures are parse errors.
package fetch
