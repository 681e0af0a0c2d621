package logging

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ctx := ContextWithLogger(context.Background(), logger)

	if got := FromContext(ctx); got != logger {
		t.Fatalf("FromContext returned %v, want the attached logger", got)
	}
}

func TestNilHandling(t *testing.T) {
	t.Parallel()

	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("expected nil logger from an empty context, got %v", got)
	}
	if got := FromContext(nil); got != nil {
		t.Fatalf("expected nil logger from a nil context, got %v", got)
	}

	ctx := context.Background()
	if derived := ContextWithLogger(ctx, nil); derived != ctx {
		t.Fatal("attaching a nil logger must leave the context unchanged")
	}
}
