// Package logging assembles structured slog loggers and formatting helpers used
// across discshelf.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so lookup sources and store code tag log
// lines with the active source and correlation ID. Warnings go through
// WarnWithContext so each one names an event type, a hint, and its impact.
package logging
