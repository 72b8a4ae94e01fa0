// Package file implements a JSON-file cart snapshot, the durable local
// store for a single browsing session.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/timunlipat/dapur-segar/pkg/cart"
)

// Snapshot stores the cart as a single JSON array in one file.
type Snapshot struct {
	path string
}

// New creates a snapshot backed by the file at path.
func New(path string) *Snapshot {
	return &Snapshot{path: path}
}

// Load reads the persisted cart. A missing file is an empty cart, not an
// error; unreadable data or anything other than a JSON array is an error.
func (s *Snapshot) Load(ctx context.Context) ([]cart.Line, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cart file: %w", err)
	}
	var lines []cart.Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("decode cart file: %w", err)
	}
	return lines, nil
}

// Save writes the full cart, replacing any previous snapshot.
func (s *Snapshot) Save(ctx context.Context, lines []cart.Line) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write cart file: %w", err)
	}
	return nil
}
