package db

import (
	"context"
	"testing"
)

func TestStateRoundTrip(t *testing.T) {
	d, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	ctx := context.Background()

	if got, err := d.GetState(ctx, "missing"); err != nil || got != "" {
		t.Errorf("GetState for unknown key = %q, %v", got, err)
	}

	if err := d.PutState(ctx, "k", `{"a":1}`); err != nil {
		t.Fatalf("PutState: %v", err)
	}
	if got, _ := d.GetState(ctx, "k"); got != `{"a":1}` {
		t.Errorf("GetState = %q", got)
	}

	// Upsert replaces.
	if err := d.PutState(ctx, "k", `{"a":2}`); err != nil {
		t.Fatalf("PutState (update): %v", err)
	}
	if got, _ := d.GetState(ctx, "k"); got != `{"a":2}` {
		t.Errorf("GetState after update = %q", got)
	}
}

func TestNewRejectsEmptyPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
