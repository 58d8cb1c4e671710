package logging

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestContextLogger(t *testing.T) {
	base := slog.New(slog.NewTextHandler(io.Discard, nil))
	request := base.With("request_id", "req-1")

	if FromContext(context.Background()) != nil {
		t.Fatalf("expected no logger on a bare context")
	}
	if got := FromContextOr(context.Background(), base); got != base {
		t.Fatalf("expected fallback logger")
	}

	ctx := ContextWithLogger(context.Background(), request)
	if FromContext(ctx) != request || FromContextOr(ctx, base) != request {
		t.Fatalf("expected request logger from context")
	}
	if ContextWithLogger(ctx, nil) != ctx {
		t.Fatalf("nil logger must not replace the context")
	}
}
