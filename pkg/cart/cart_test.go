package cart

import (
	"encoding/json"
	"testing"
)

func TestIDDecodesStringsAndNumbers(t *testing.T) {
	var p Product
	if err := json.Unmarshal([]byte(`{"id":42,"name":"Tomat","quantity":2}`), &p); err != nil {
		t.Fatalf("numeric id: %v", err)
	}
	if p.ID != "42" {
		t.Fatalf("expected id 42, got %q", p.ID)
	}
	if err := json.Unmarshal([]byte(`{"id":"sku-7"}`), &p); err != nil {
		t.Fatalf("string id: %v", err)
	}
	if p.ID != "sku-7" {
		t.Fatalf("expected id sku-7, got %q", p.ID)
	}
	if err := json.Unmarshal([]byte(`{"id":true}`), &p); err == nil {
		t.Fatal("expected error for boolean id")
	}
}

func TestComputeTotalsBelowThreshold(t *testing.T) {
	lines := []Line{
		{ID: "1", Price: 20, Quantity: 2},
		{ID: "2", Price: 5, Quantity: 1},
	}
	got := ComputeTotals(lines)
	if got.Subtotal != 45 {
		t.Fatalf("subtotal: expected 45, got %v", got.Subtotal)
	}
	if got.Shipping != 5.90 {
		t.Fatalf("shipping: expected 5.90, got %v", got.Shipping)
	}
	if got.Total != 50.90 {
		t.Fatalf("total: expected 50.90, got %v", got.Total)
	}
	if got.ItemCount != 3 {
		t.Fatalf("item count: expected 3, got %d", got.ItemCount)
	}
}

func TestComputeTotalsAtThreshold(t *testing.T) {
	got := ComputeTotals([]Line{{ID: "1", Price: 25, Quantity: 2}})
	if got.Shipping != 0 {
		t.Fatalf("expected free shipping at threshold, got %v", got.Shipping)
	}
	if got.Total != 50 {
		t.Fatalf("total: expected 50, got %v", got.Total)
	}
}

func TestComputeTotalsEmpty(t *testing.T) {
	got := ComputeTotals(nil)
	if got.Subtotal != 0 || got.ItemCount != 0 {
		t.Fatalf("unexpected totals for empty cart: %+v", got)
	}
	if got.Shipping != ShippingFee {
		t.Fatalf("shipping: expected %v, got %v", ShippingFee, got.Shipping)
	}
}
