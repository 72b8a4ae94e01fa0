package memory

import (
	"context"
	"testing"

	"github.com/timunlipat/dapur-segar/pkg/cart"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	lines := []cart.Line{{ID: "1", Name: "Tomat", Price: 4.5, Unit: "kg", Quantity: 2}}
	if err := s.Save(ctx, lines); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0] != lines[0] {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLoadEmpty(t *testing.T) {
	got, err := New().Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty cart, got %+v", got)
	}
}

func TestLoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Save(ctx, []cart.Line{{ID: "1", Quantity: 2}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got[0].Quantity = 99
	again, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if again[0].Quantity != 2 {
		t.Fatal("Load must return a copy of the stored cart")
	}
}
