package market

import (
	"context"
	"sync"
	"time"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
)

// MockProvider is an in-memory Provider for tests and local runs.
// Prices and failures are injected per symbol.
type MockProvider struct {
	mu      sync.RWMutex
	prices  map[string]float64
	rsis    map[string]float64
	errs    map[string]error
	fetches map[string]int
	now     func() time.Time
}

// NewMockProvider creates a mock provider with no data
func NewMockProvider() *MockProvider {
	return &MockProvider{
		prices:  make(map[string]float64),
		rsis:    make(map[string]float64),
		errs:    make(map[string]error),
		fetches: make(map[string]int),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Name returns the provider name
func (m *MockProvider) Name() string { return "mock" }

// SetPrice sets the price returned for a symbol
func (m *MockProvider) SetPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
	delete(m.errs, symbol)
}

// SetRSI sets the RSI returned for a symbol
func (m *MockProvider) SetRSI(symbol string, rsi float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rsis[symbol] = rsi
}

// ClearRSI removes the RSI for a symbol so snapshots carry none
func (m *MockProvider) ClearRSI(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rsis, symbol)
}

// SetError makes fetches for a symbol fail
func (m *MockProvider) SetError(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[symbol] = err
}

// SetClock overrides the timestamp source (for testing)
func (m *MockProvider) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// FetchCount returns how many times a symbol was fetched
func (m *MockProvider) FetchCount(symbol string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fetches[symbol]
}

// FetchSnapshot returns the injected snapshot for a symbol
func (m *MockProvider) FetchSnapshot(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[symbol]++

	if err, ok := m.errs[symbol]; ok {
		return nil, err
	}
	price, ok := m.prices[symbol]
	if !ok {
		return nil, ErrNoData
	}

	snapshot := &models.MarketSnapshot{
		Symbol:    symbol,
		Price:     price,
		FetchedAt: m.now(),
	}
	if rsi, ok := m.rsis[symbol]; ok {
		v := rsi
		snapshot.RSI14 = &v
	}
	return snapshot, nil
}
