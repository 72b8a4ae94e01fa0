package cart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Mutation ops reported in Event.Op.
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpRemove = "remove"
)

// Event describes a completed cart mutation, delivered to subscribers.
type Event struct {
	Op   string
	Line Line
}

// Store is the authoritative cart state for one browsing session. All
// reads and mutations go through it; persistence is write-through and
// best-effort, so a failed save never disturbs in-memory state.
type Store struct {
	mu        sync.Mutex
	lines     []Line
	isOpen    bool
	snap      Snapshot
	log       *zap.Logger
	openDelay time.Duration
	subs      []func(Event)
	dirty     bool
	saving    bool
	saves     sync.WaitGroup
}

// New builds a Store seeded from the snapshot. A load failure is logged
// and the cart starts empty; construction never fails.
func New(ctx context.Context, snap Snapshot, log *zap.Logger) *Store {
	s := &Store{snap: snap, log: log, openDelay: DefaultOpenDelay}
	lines, err := snap.Load(ctx)
	if err != nil {
		log.Warn("cart snapshot load failed, starting empty", zap.Error(err))
		return s
	}
	s.lines = sanitize(lines, log)
	return s
}

// sanitize drops persisted lines that violate cart invariants: empty id,
// quantity below 1, or a duplicate of an id already adopted.
func sanitize(lines []Line, log *zap.Logger) []Line {
	var kept []Line
	seen := make(map[ID]bool, len(lines))
	dropped := 0
	for _, l := range lines {
		if l.ID == "" || l.Quantity < 1 || seen[l.ID] {
			dropped++
			continue
		}
		seen[l.ID] = true
		kept = append(kept, l)
	}
	if dropped > 0 {
		log.Warn("dropped invalid persisted cart lines", zap.Int("count", dropped))
	}
	return kept
}

// AddToCart adds a product to the cart. A product already present has the
// requested quantity added to its line; a new product is appended. The
// cart panel is scheduled to open shortly after a successful add.
func (s *Store) AddToCart(ctx context.Context, p Product) error {
	if p.ID == "" {
		s.log.Error("add to cart rejected", zap.Error(ErrInvalidProduct))
		return ErrInvalidProduct
	}
	qty := p.Quantity
	if qty < 1 {
		qty = 1
	}

	s.mu.Lock()
	var line Line
	merged := false
	for i := range s.lines {
		if s.lines[i].ID == p.ID {
			s.lines[i].Quantity += qty
			line = s.lines[i]
			merged = true
			break
		}
	}
	if !merged {
		line = Line{ID: p.ID, Name: p.Name, Price: p.Price, Unit: p.Unit, Image: p.Image, Quantity: qty}
		s.lines = append(s.lines, line)
	}
	s.scheduleSave(ctx)
	s.mu.Unlock()

	// The panel opens a beat after the add so rapid successive adds
	// don't flicker it. Opening is decoupled from the mutation itself.
	time.AfterFunc(s.openDelay, func() { s.SetOpen(true) })

	s.notify(Event{Op: OpAdd, Line: line})
	return nil
}

// UpdateQuantity sets the quantity of the line matching id. A quantity
// below 1 removes the line; an absent id is a no-op.
func (s *Store) UpdateQuantity(ctx context.Context, id ID, quantity int) {
	if quantity < 1 {
		s.RemoveItem(ctx, id)
		return
	}

	s.mu.Lock()
	var line Line
	found := false
	for i := range s.lines {
		if s.lines[i].ID == id {
			s.lines[i].Quantity = quantity
			line = s.lines[i]
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return
	}
	s.scheduleSave(ctx)
	s.mu.Unlock()

	s.notify(Event{Op: OpUpdate, Line: line})
}

// RemoveItem deletes the line matching id; an absent id is a no-op.
func (s *Store) RemoveItem(ctx context.Context, id ID) {
	s.mu.Lock()
	var line Line
	found := false
	for i := range s.lines {
		if s.lines[i].ID == id {
			line = s.lines[i]
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return
	}
	s.scheduleSave(ctx)
	s.mu.Unlock()

	s.notify(Event{Op: OpRemove, Line: line})
}

// Lines returns a copy of the current cart lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Totals derives the checkout totals from the current lines.
func (s *Store) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeTotals(s.lines)
}

// IsOpen reports whether the cart panel is open.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isOpen
}

// SetOpen opens or closes the cart panel. Repeated transitions to the
// same state are no-ops.
func (s *Store) SetOpen(open bool) {
	s.mu.Lock()
	s.isOpen = open
	s.mu.Unlock()
}

// Subscribe registers fn to receive an Event after every completed
// mutation. Events are delivered synchronously in subscription order.
func (s *Store) Subscribe(fn func(Event)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// scheduleSave marks the lines dirty and ensures a save worker is
// running. The caller must hold s.mu. A single worker per store keeps
// saves ordered; it always persists the newest state, so a snapshot
// written for an earlier mutation can never land after a later one.
func (s *Store) scheduleSave(ctx context.Context) {
	s.dirty = true
	if s.saving {
		return
	}
	s.saving = true
	s.saves.Add(1)
	// The triggering request may finish before the save does.
	go s.saveLoop(context.WithoutCancel(ctx))
}

// saveLoop persists the latest lines until no mutation is pending.
func (s *Store) saveLoop(ctx context.Context) {
	defer s.saves.Done()
	for {
		s.mu.Lock()
		if !s.dirty {
			s.saving = false
			s.mu.Unlock()
			return
		}
		s.dirty = false
		lines := make([]Line, len(s.lines))
		copy(lines, s.lines)
		s.mu.Unlock()

		if err := s.snap.Save(ctx, lines); err != nil {
			s.log.Warn("cart snapshot save failed", zap.Error(err))
		}
	}
}

func (s *Store) notify(ev Event) {
	s.mu.Lock()
	subs := make([]func(Event), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}
