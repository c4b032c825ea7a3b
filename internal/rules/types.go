package rules

import (
	"context"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
)

// Store defines the interface for storing and retrieving monitoring rules
type Store interface {
	// Get retrieves a rule by ID
	Get(ctx context.Context, id string) (*models.Rule, error)

	// ListAll retrieves all rules for an owner
	ListAll(ctx context.Context, ownerID string) ([]*models.Rule, error)

	// ListEnabled retrieves the enabled rules for an owner
	ListEnabled(ctx context.Context, ownerID string) ([]*models.Rule, error)

	// ListOwners returns the distinct owners that have at least one rule
	ListOwners(ctx context.Context) ([]string, error)

	// Create adds a new rule
	Create(ctx context.Context, rule *models.Rule) error

	// Update updates an existing rule
	Update(ctx context.Context, rule *models.Rule) error

	// Delete deletes a rule by ID
	Delete(ctx context.Context, id string) error

	// Enable enables a rule
	Enable(ctx context.Context, id string) error

	// Disable disables a rule
	Disable(ctx context.Context, id string) error
}
