package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/timunlipat/dapur-segar/pkg/cart"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "cart.json"))
	lines := []cart.Line{
		{ID: "1", Name: "Tomat", Price: 4.5, Unit: "kg", Image: "/img/tomat.jpg", Quantity: 2},
		{ID: "2", Name: "Bayam", Price: 2.2, Unit: "ikat", Image: "/img/bayam.jpg", Quantity: 1},
	}
	if err := s.Save(ctx, lines); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(lines) {
		t.Fatalf("expected %d lines, got %d", len(lines), len(got))
	}
	for i := range lines {
		if got[i] != lines[i] {
			t.Fatalf("line %d: expected %+v, got %+v", i, lines[i], got[i])
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "absent.json"))
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty cart, got %+v", got)
	}
}

func TestLoadCorruptData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(path).Load(context.Background()); err == nil {
		t.Fatal("expected error for corrupt data")
	}
}

func TestLoadNonArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")
	if err := os.WriteFile(path, []byte(`{"id":"1","quantity":2}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(path).Load(context.Background()); err == nil {
		t.Fatal("expected error for non-array snapshot")
	}
}

func TestSaveOverwritesPrevious(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "cart.json"))
	if err := s.Save(ctx, []cart.Line{{ID: "1", Quantity: 3}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty cart after overwrite, got %+v", got)
	}
}
