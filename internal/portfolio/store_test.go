package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
)

func testHolding(ownerID, symbol string, costBasis float64) *models.Holding {
	return &models.Holding{
		ID:         ownerID + "-" + symbol,
		OwnerID:    ownerID,
		Symbol:     symbol,
		Shares:     10,
		CostBasis:  costBasis,
		AcquiredAt: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestInMemoryStore_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	h := testHolding("user-1", "AAPL", 150.0)
	if err := store.Upsert(ctx, h); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := store.GetHolding(ctx, "user-1", "AAPL")
	if err != nil {
		t.Fatalf("GetHolding() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetHolding() = nil, want holding")
	}
	if got.CostBasis != 150.0 {
		t.Errorf("CostBasis = %v, want 150.0", got.CostBasis)
	}

	// Returned copy must not alias the stored value
	got.CostBasis = 1.0
	again, _ := store.GetHolding(ctx, "user-1", "AAPL")
	if again.CostBasis != 150.0 {
		t.Errorf("stored CostBasis = %v, want 150.0", again.CostBasis)
	}
}

func TestInMemoryStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	got, err := store.GetHolding(ctx, "user-1", "AAPL")
	if err != nil {
		t.Fatalf("GetHolding() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetHolding() = %+v, want nil", got)
	}
}

func TestInMemoryStore_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	if err := store.Upsert(ctx, testHolding("user-1", "AAPL", 150.0)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := store.Upsert(ctx, testHolding("user-1", "AAPL", 120.0)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if store.Count() != 1 {
		t.Errorf("Count() = %d, want 1", store.Count())
	}
	got, _ := store.GetHolding(ctx, "user-1", "AAPL")
	if got.CostBasis != 120.0 {
		t.Errorf("CostBasis = %v, want 120.0", got.CostBasis)
	}
}

func TestInMemoryStore_UpsertInvalid(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	h := testHolding("user-1", "AAPL", 150.0)
	h.OwnerID = ""
	if err := store.Upsert(ctx, h); err == nil {
		t.Error("Upsert() without owner should fail")
	}
	if err := store.Upsert(ctx, nil); err == nil {
		t.Error("Upsert(nil) should fail")
	}
}

func TestInMemoryStore_ZeroCostBasisAllowed(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	// Gifted or transferred shares can carry an unknown cost basis
	h := testHolding("user-1", "AAPL", 0)
	if err := store.Upsert(ctx, h); err != nil {
		t.Errorf("Upsert() with zero cost basis error = %v", err)
	}
}

func TestInMemoryStore_ListHoldings(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	for _, h := range []*models.Holding{
		testHolding("user-1", "MSFT", 300.0),
		testHolding("user-1", "AAPL", 150.0),
		testHolding("user-2", "TSLA", 200.0),
	} {
		if err := store.Upsert(ctx, h); err != nil {
			t.Fatalf("Upsert(%s) error = %v", h.Symbol, err)
		}
	}

	holdings, err := store.ListHoldings(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListHoldings() error = %v", err)
	}
	if len(holdings) != 2 {
		t.Fatalf("len(holdings) = %d, want 2", len(holdings))
	}
	if holdings[0].Symbol != "AAPL" || holdings[1].Symbol != "MSFT" {
		t.Errorf("holdings not sorted by symbol: %v, %v", holdings[0].Symbol, holdings[1].Symbol)
	}
}

func TestInMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	if err := store.Upsert(ctx, testHolding("user-1", "AAPL", 150.0)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := store.Delete(ctx, "user-1", "AAPL"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if store.Count() != 0 {
		t.Errorf("Count() = %d, want 0", store.Count())
	}
	if err := store.Delete(ctx, "user-1", "AAPL"); err == nil {
		t.Error("Delete() of missing holding should fail")
	}
}
