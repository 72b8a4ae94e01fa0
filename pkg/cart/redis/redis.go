// Package redis implements a Redis-backed cart snapshot.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/timunlipat/dapur-segar/pkg/cart"
)

// Snapshot stores the serialized cart under one key per session.
type Snapshot struct {
	client *redis.Client
	key    string
}

// New creates a snapshot bound to the given session key.
func New(client *redis.Client, sessionKey string) *Snapshot {
	return &Snapshot{client: client, key: "cart:" + sessionKey}
}

// Load reads the persisted cart. A missing key is an empty cart.
func (s *Snapshot) Load(ctx context.Context) ([]cart.Line, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	var lines []cart.Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", s.key, err)
	}
	return lines, nil
}

// Save writes the full cart, replacing any previous snapshot.
func (s *Snapshot) Save(ctx context.Context, lines []cart.Line) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}
