package collection

import (
	"context"
	"errors"
)

// ErrPreconditionFailed reports that the stored document changed since the
// token passed to Save was read.
var ErrPreconditionFailed = errors.New("collection: version precondition failed")

// Backend stores the collection document with compare-and-swap semantics.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
	// Load returns the current document and its token. A missing document is
	// an empty collection with an empty token.
	Load(ctx context.Context) (Snapshot, error)
	// Save writes doc if the stored token still equals token and returns the
	// new token. An empty token means the document must not exist yet.
	// message describes the change for backends that keep history.
	Save(ctx context.Context, doc Document, token, message string) (string, error)
}
