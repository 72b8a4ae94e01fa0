package main

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/timunlipat/dapur-segar/pkg/cart"
	cartmem "github.com/timunlipat/dapur-segar/pkg/cart/memory"
)

func TestRegistryEvictsExpiredSessions(t *testing.T) {
	log = zap.NewNop()
	newSnapshot = func(string) cart.Snapshot { return cartmem.New() }

	ctx := context.Background()
	r := &registry{stores: make(map[string]*sessionEntry), ttl: sessionTTL}
	r.forSession(ctx, "stale")
	r.stores["stale"].lastSeen = time.Now().Add(-2 * sessionTTL)
	fresh := r.forSession(ctx, "fresh")

	r.evictExpired(time.Now().Add(-sessionTTL))

	if _, ok := r.stores["stale"]; ok {
		t.Fatal("expired session store must be evicted")
	}
	if _, ok := r.stores["fresh"]; !ok {
		t.Fatal("live session store must survive the sweep")
	}
	if got := r.forSession(ctx, "fresh"); got != fresh {
		t.Fatal("live session must keep its store instance")
	}
}

func TestRegistryReusesStorePerSession(t *testing.T) {
	log = zap.NewNop()
	newSnapshot = func(string) cart.Snapshot { return cartmem.New() }

	ctx := context.Background()
	r := &registry{stores: make(map[string]*sessionEntry), ttl: sessionTTL}
	a := r.forSession(ctx, "s1")
	b := r.forSession(ctx, "s1")
	if a != b {
		t.Fatal("same session must get the same store")
	}
	if c := r.forSession(ctx, "s2"); c == a {
		t.Fatal("different sessions must get different stores")
	}
}
