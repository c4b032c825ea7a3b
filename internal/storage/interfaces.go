package storage

import (
	"context"
	"time"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
)

// AlertStorage defines the interface for alert persistence
type AlertStorage interface {
	// WriteAlert durably records a triggered alert
	WriteAlert(ctx context.Context, alert *models.TriggerResult) error

	// MarkNotified flags an alert as delivered to at least one notifier
	MarkNotified(ctx context.Context, alertID string) error

	// GetAlerts retrieves alerts with filtering options
	GetAlerts(ctx context.Context, filter AlertFilter) ([]*models.TriggerResult, error)

	// GetAlert retrieves a single alert by ID, nil when absent
	GetAlert(ctx context.Context, alertID string) (*models.TriggerResult, error)

	// Close closes the storage connection
	Close() error
}

// AlertFilter defines filtering options for alert queries
type AlertFilter struct {
	OwnerID   string
	Symbol    string
	RuleID    string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// RedisClient defines the Redis operations the cooldown ledger needs
type RedisClient interface {
	// Set stores a value with an optional TTL (0 = no expiry)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// SetNX stores a value only if the key does not exist.
	// Returns true when the key was set.
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	// Get retrieves a value; returns ("", nil) for a missing key
	Get(ctx context.Context, key string) (string, error)

	// Delete removes one or more keys
	Delete(ctx context.Context, keys ...string) error

	// Exists reports whether a key exists
	Exists(ctx context.Context, key string) (bool, error)

	// ScanKeys returns all keys matching a pattern
	ScanKeys(ctx context.Context, pattern string) ([]string, error)

	// Close closes the Redis connection
	Close() error
}
