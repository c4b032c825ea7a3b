// Package portfolio stores the holdings that cost-basis rules evaluate
// against. A holding is one (owner, symbol) position with its per-share
// cost basis.
package portfolio

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
)

// Store defines the interface for storing and retrieving holdings
type Store interface {
	// ListHoldings retrieves all holdings for an owner
	ListHoldings(ctx context.Context, ownerID string) ([]*models.Holding, error)

	// GetHolding retrieves an owner's holding for one symbol; a missing
	// holding returns (nil, nil)
	GetHolding(ctx context.Context, ownerID, symbol string) (*models.Holding, error)

	// Upsert creates or replaces the holding for its (owner, symbol)
	Upsert(ctx context.Context, holding *models.Holding) error

	// Delete removes an owner's holding for one symbol
	Delete(ctx context.Context, ownerID, symbol string) error
}

// InMemoryStore is an in-memory implementation of Store
type InMemoryStore struct {
	mu       sync.RWMutex
	holdings map[string]*models.Holding // keyed by ownerID|symbol
}

// NewInMemoryStore creates a new in-memory holding store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		holdings: make(map[string]*models.Holding),
	}
}

func holdingKey(ownerID, symbol string) string {
	return ownerID + "|" + symbol
}

// ListHoldings retrieves all holdings for an owner
func (s *InMemoryStore) ListHoldings(ctx context.Context, ownerID string) ([]*models.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holdings := make([]*models.Holding, 0)
	for _, h := range s.holdings {
		if h.OwnerID == ownerID {
			holdings = append(holdings, copyHolding(h))
		}
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })
	return holdings, nil
}

// GetHolding retrieves an owner's holding for one symbol
func (s *InMemoryStore) GetHolding(ctx context.Context, ownerID, symbol string) (*models.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.holdings[holdingKey(ownerID, symbol)]
	if !exists {
		return nil, nil
	}
	return copyHolding(h), nil
}

// Upsert creates or replaces the holding for its (owner, symbol)
func (s *InMemoryStore) Upsert(ctx context.Context, holding *models.Holding) error {
	if holding == nil {
		return fmt.Errorf("holding cannot be nil")
	}
	if err := holding.Validate(); err != nil {
		return fmt.Errorf("invalid holding: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.holdings[holdingKey(holding.OwnerID, holding.Symbol)] = copyHolding(holding)
	return nil
}

// Delete removes an owner's holding for one symbol
func (s *InMemoryStore) Delete(ctx context.Context, ownerID, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := holdingKey(ownerID, symbol)
	if _, exists := s.holdings[key]; !exists {
		return fmt.Errorf("holding not found: %s %s", ownerID, symbol)
	}
	delete(s.holdings, key)
	return nil
}

// Count returns the number of holdings in the store
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.holdings)
}

func copyHolding(h *models.Holding) *models.Holding {
	if h == nil {
		return nil
	}
	copied := *h
	return &copied
}
