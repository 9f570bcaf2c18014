// Package matching scores lookup candidates against a preferred title and
// year, ranks them, and applies the single auto-accept policy shared by every
// lookup path.
package matching
