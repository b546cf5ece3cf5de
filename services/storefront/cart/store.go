package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/dailykart/dailykart/services/storefront/models"
	"github.com/dailykart/dailykart/services/storefront/session"
	"go.uber.org/zap"
)

// MaxQuantity caps a single cart line so line totals and the subtotal stay
// far from int64 overflow.
const MaxQuantity = 999

// KV is the slice of a session the cart needs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Store is one session's cart. All mutations persist the whole state under
// session.KeyCart; persistence failures are logged and the in-memory state
// keeps working.
type Store struct {
	mu    sync.Mutex
	kv    KV
	items []models.CartItem
}

// Load restores the cart from kv, starting empty when nothing usable is stored.
func Load(ctx context.Context, kv KV) *Store {
	s := &Store{kv: kv}

	raw, err := kv.Get(ctx, session.KeyCart)
	if err != nil {
		if !errors.Is(err, session.ErrKeyNotFound) {
			zap.L().Warn("Failed to load cart from session storage", zap.Error(err))
		}
		return s
	}

	var state models.CartState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		zap.L().Warn("Discarding unreadable cart state", zap.Error(err))
		return s
	}
	s.items = sanitize(state.Items)
	return s
}

// sanitize drops entries that break the cart rules, keeping the first
// entry per id.
func sanitize(items []models.CartItem) []models.CartItem {
	seen := make(map[string]bool, len(items))
	out := make([]models.CartItem, 0, len(items))
	for _, it := range items {
		if it.ID == "" || it.Quantity < 1 || seen[it.ID] {
			continue
		}
		it.Quantity = min(it.Quantity, MaxQuantity)
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// AddItem increments the quantity of an existing entry or appends a new one with quantity 1.
func (s *Store) AddItem(ctx context.Context, item models.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(item.ID); i >= 0 {
		if s.items[i].Quantity >= MaxQuantity {
			return
		}
		s.items[i].Quantity++
	} else {
		item.Quantity = 1
		s.items = append(s.items, item)
	}
	s.persist(ctx)
}

// RemoveItem deletes the entry; unknown ids are ignored.
func (s *Store) RemoveItem(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.persist(ctx)
}

func (s *Store) IncrementQuantity(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 && s.items[i].Quantity < MaxQuantity {
		s.items[i].Quantity++
		s.persist(ctx)
	}
}

// DecrementQuantity never takes an entry below 1; use RemoveItem to delete.
func (s *Store) DecrementQuantity(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 && s.items[i].Quantity > 1 {
		s.items[i].Quantity--
		s.persist(ctx)
	}
}

// UpdateQuantity sets an exact quantity. Values below 1 are ignored and
// values above MaxQuantity are capped.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) {
	if quantity < 1 {
		return
	}
	quantity = min(quantity, MaxQuantity)
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		s.items[i].Quantity = quantity
		s.persist(ctx)
	}
}

func (s *Store) ClearCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.persist(ctx)
}

// Items returns a copy of the entries in display order.
func (s *Store) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

// ItemCount is the sum of all quantities.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// Subtotal is the sum of price × quantity.
func (s *Store) Subtotal() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, it := range s.items {
		total += it.LineTotal()
	}
	return total
}

func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) == 0
}

// persist must be called with mu held.
func (s *Store) persist(ctx context.Context) {
	state := models.CartState{Items: s.items}
	if state.Items == nil {
		state.Items = []models.CartItem{}
	}
	b, err := json.Marshal(state)
	if err != nil {
		zap.L().Error("Failed to encode cart", zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, session.KeyCart, string(b)); err != nil {
		zap.L().Warn("Failed to persist cart, continuing in memory", zap.Error(err))
	}
}
