package storage

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
)

// MockAlertStorage is a mock implementation of AlertStorage for testing
type MockAlertStorage struct {
	mu       sync.Mutex
	Alerts   []*models.TriggerResult
	Notified map[string]bool
	WriteErr error
	GetErr   error
}

func NewMockAlertStorage() *MockAlertStorage {
	return &MockAlertStorage{
		Notified: make(map[string]bool),
	}
}

func (m *MockAlertStorage) WriteAlert(ctx context.Context, alert *models.TriggerResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	// Idempotent on ID like the ON CONFLICT DO NOTHING insert
	for _, existing := range m.Alerts {
		if existing.ID == alert.ID {
			return nil
		}
	}
	m.Alerts = append(m.Alerts, alert)
	return nil
}

func (m *MockAlertStorage) MarkNotified(ctx context.Context, alertID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, alert := range m.Alerts {
		if alert.ID == alertID {
			m.Notified[alertID] = true
			return nil
		}
	}
	return fmt.Errorf("alert not found: %s", alertID)
}

func (m *MockAlertStorage) GetAlerts(ctx context.Context, filter AlertFilter) ([]*models.TriggerResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	var result []*models.TriggerResult
	for _, alert := range m.Alerts {
		if filter.OwnerID != "" && alert.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Symbol != "" && alert.Symbol != filter.Symbol {
			continue
		}
		if filter.RuleID != "" && alert.RuleID != filter.RuleID {
			continue
		}
		if !filter.StartTime.IsZero() && alert.TriggeredAt.Before(filter.StartTime) {
			continue
		}
		if !filter.EndTime.IsZero() && alert.TriggeredAt.After(filter.EndTime) {
			continue
		}
		result = append(result, alert)
	}
	start := filter.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + filter.Limit
	if end > len(result) {
		end = len(result)
	}
	if filter.Limit > 0 {
		return result[start:end], nil
	}
	return result[start:], nil
}

func (m *MockAlertStorage) GetAlert(ctx context.Context, alertID string) (*models.TriggerResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, alert := range m.Alerts {
		if alert.ID == alertID {
			return alert, nil
		}
	}
	return nil, nil
}

func (m *MockAlertStorage) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Alerts)
}

func (m *MockAlertStorage) Close() error {
	return nil
}

// mockEntry is a value with an optional expiry
type mockEntry struct {
	value     string
	expiresAt time.Time // zero = no expiry
}

// MockRedisClient is an in-memory RedisClient for testing. Expiry is
// evaluated against the injectable clock so TTL behavior is testable.
type MockRedisClient struct {
	mu     sync.Mutex
	data   map[string]mockEntry
	Now    func() time.Time
	SetErr error
	GetErr error
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		data: make(map[string]mockEntry),
		Now:  time.Now,
	}
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.data[key] = m.entry(value, ttl)
	return nil
}

func (m *MockRedisClient) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return false, m.SetErr
	}
	if m.live(key) {
		return false, nil
	}
	m.data[key] = m.entry(value, ttl)
	return true, nil
}

func (m *MockRedisClient) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return "", m.GetErr
	}
	if !m.live(key) {
		return "", nil
	}
	return m.data[key].value, nil
}

func (m *MockRedisClient) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *MockRedisClient) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return false, m.GetErr
	}
	return m.live(key), nil
}

func (m *MockRedisClient) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	var keys []string
	for key := range m.data {
		if ok, _ := path.Match(pattern, key); ok && m.live(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MockRedisClient) Close() error {
	return nil
}

func (m *MockRedisClient) entry(value interface{}, ttl time.Duration) mockEntry {
	e := mockEntry{value: fmt.Sprintf("%v", value)}
	if ttl > 0 {
		e.expiresAt = m.Now().Add(ttl)
	}
	return e
}

// live reports whether a key exists and has not expired. Callers hold the lock.
func (m *MockRedisClient) live(key string) bool {
	e, ok := m.data[key]
	if !ok {
		return false
	}
	if !e.expiresAt.IsZero() && !m.Now().Before(e.expiresAt) {
		delete(m.data, key)
		return false
	}
	return true
}
