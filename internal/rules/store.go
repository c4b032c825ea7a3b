package rules

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
)

// InMemoryStore is an in-memory implementation of Store
type InMemoryStore struct {
	mu    sync.RWMutex
	rules map[string]*models.Rule
}

// NewInMemoryStore creates a new in-memory rule store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		rules: make(map[string]*models.Rule),
	}
}

// Get retrieves a rule by ID
func (s *InMemoryStore) Get(ctx context.Context, id string) (*models.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, exists := s.rules[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", models.ErrRuleNotFound, id)
	}

	// Return a copy to prevent external modifications
	return copyRule(rule), nil
}

// ListAll retrieves all rules for an owner
func (s *InMemoryStore) ListAll(ctx context.Context, ownerID string) ([]*models.Rule, error) {
	return s.list(ownerID, false), nil
}

// ListEnabled retrieves the enabled rules for an owner
func (s *InMemoryStore) ListEnabled(ctx context.Context, ownerID string) ([]*models.Rule, error) {
	return s.list(ownerID, true), nil
}

func (s *InMemoryStore) list(ownerID string, enabledOnly bool) []*models.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]*models.Rule, 0)
	for _, rule := range s.rules {
		if rule.OwnerID != ownerID {
			continue
		}
		if enabledOnly && !rule.Enabled {
			continue
		}
		rules = append(rules, copyRule(rule))
	}

	// Deterministic order for stable cycles and tests
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

// ListOwners returns the distinct owners that have at least one rule
func (s *InMemoryStore) ListOwners(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	owners := make([]string, 0)
	for _, rule := range s.rules {
		if !seen[rule.OwnerID] {
			seen[rule.OwnerID] = true
			owners = append(owners, rule.OwnerID)
		}
	}
	sort.Strings(owners)
	return owners, nil
}

// Create adds a new rule
func (s *InMemoryStore) Create(ctx context.Context, rule *models.Rule) error {
	if rule == nil {
		return fmt.Errorf("rule cannot be nil")
	}
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.ID]; exists {
		return fmt.Errorf("rule already exists: %s", rule.ID)
	}

	now := time.Now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = now
	}

	s.rules[rule.ID] = copyRule(rule)
	return nil
}

// Update updates an existing rule
func (s *InMemoryStore) Update(ctx context.Context, rule *models.Rule) error {
	if rule == nil {
		return fmt.Errorf("rule cannot be nil")
	}
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.rules[rule.ID]
	if !exists {
		return fmt.Errorf("%w: %s", models.ErrRuleNotFound, rule.ID)
	}

	// Preserve CreatedAt
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now()

	s.rules[rule.ID] = copyRule(rule)
	return nil
}

// Delete deletes a rule by ID
func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("rule ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[id]; !exists {
		return fmt.Errorf("%w: %s", models.ErrRuleNotFound, id)
	}

	delete(s.rules, id)
	return nil
}

// Enable enables a rule
func (s *InMemoryStore) Enable(ctx context.Context, id string) error {
	return s.setEnabled(id, true)
}

// Disable disables a rule
func (s *InMemoryStore) Disable(ctx context.Context, id string) error {
	return s.setEnabled(id, false)
}

func (s *InMemoryStore) setEnabled(id string, enabled bool) error {
	if id == "" {
		return fmt.Errorf("rule ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rule, exists := s.rules[id]
	if !exists {
		return fmt.Errorf("%w: %s", models.ErrRuleNotFound, id)
	}

	rule.Enabled = enabled
	rule.UpdatedAt = time.Now()
	return nil
}

// Count returns the number of rules in the store
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// copyRule creates a copy of a rule
func copyRule(rule *models.Rule) *models.Rule {
	if rule == nil {
		return nil
	}
	copied := *rule
	return &copied
}
