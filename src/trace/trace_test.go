package trace

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestDisabledIsNoop(t *testing.T) {
	if err := Init(false, nil); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	ctx := context.Background()
	got, span := StartSpan(ctx, "noop")
	defer span.End()
	if got != ctx || span.SpanContext().IsValid() {
		t.Fatalf("disabled tracing must not create spans")
	}
	if Enabled() {
		t.Fatalf("tracing reported enabled")
	}
}

func TestEnabledExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(true, &buf); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	_, span := StartSpan(context.Background(), "upstream.fetch")
	if !span.SpanContext().IsValid() {
		t.Fatalf("expected a recording span")
	}
	RecordError(span, errors.New("timeout"))
	span.End()

	if err := Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "upstream.fetch") {
		t.Fatalf("span not exported: %s", buf.String())
	}
}
