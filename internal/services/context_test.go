package services_test

import (
	"context"
	"testing"

	"discshelf/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSource(ctx, "open-db")
	ctx = services.WithRequestID(ctx, "req-123")

	if source, ok := services.SourceFromContext(ctx); !ok || source != "open-db" {
		t.Fatalf("unexpected source: %v %v", source, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestSourceBlankPreservesContext(t *testing.T) {
	ctx := services.WithSource(context.Background(), "")
	if _, ok := services.SourceFromContext(ctx); ok {
		t.Fatal("expected no source value")
	}
}
