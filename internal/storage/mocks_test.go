package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
)

func testAlert(id, ownerID, ruleID, symbol string, triggeredAt time.Time) *models.TriggerResult {
	return &models.TriggerResult{
		ID:          id,
		RuleID:      ruleID,
		RuleName:    "Drawdown alarm",
		OwnerID:     ownerID,
		Kind:        models.PriceBelowCostPct,
		Symbol:      symbol,
		Price:       80,
		Threshold:   15,
		TriggeredAt: triggeredAt,
	}
}

func TestMockAlertStorage_WriteIsIdempotent(t *testing.T) {
	store := NewMockAlertStorage()
	ctx := context.Background()
	alert := testAlert("alert-1", "user-1", "rule-1", "AAPL", time.Now())

	require.NoError(t, store.WriteAlert(ctx, alert))
	require.NoError(t, store.WriteAlert(ctx, alert))

	assert.Equal(t, 1, store.Count())
}

func TestMockAlertStorage_MarkNotified(t *testing.T) {
	store := NewMockAlertStorage()
	ctx := context.Background()

	require.NoError(t, store.WriteAlert(ctx, testAlert("alert-1", "user-1", "rule-1", "AAPL", time.Now())))

	require.NoError(t, store.MarkNotified(ctx, "alert-1"))
	assert.True(t, store.Notified["alert-1"])

	err := store.MarkNotified(ctx, "missing")
	assert.Error(t, err)
}

func TestMockAlertStorage_GetAlertsFiltering(t *testing.T) {
	store := NewMockAlertStorage()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.WriteAlert(ctx, testAlert("a1", "user-1", "rule-1", "AAPL", base)))
	require.NoError(t, store.WriteAlert(ctx, testAlert("a2", "user-1", "rule-2", "MSFT", base.Add(time.Hour))))
	require.NoError(t, store.WriteAlert(ctx, testAlert("a3", "user-2", "rule-3", "AAPL", base.Add(2*time.Hour))))

	byOwner, err := store.GetAlerts(ctx, AlertFilter{OwnerID: "user-1"})
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)

	bySymbol, err := store.GetAlerts(ctx, AlertFilter{Symbol: "AAPL"})
	require.NoError(t, err)
	assert.Len(t, bySymbol, 2)

	byRule, err := store.GetAlerts(ctx, AlertFilter{RuleID: "rule-2"})
	require.NoError(t, err)
	require.Len(t, byRule, 1)
	assert.Equal(t, "a2", byRule[0].ID)

	byWindow, err := store.GetAlerts(ctx, AlertFilter{
		StartTime: base.Add(30 * time.Minute),
		EndTime:   base.Add(90 * time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, byWindow, 1)
	assert.Equal(t, "a2", byWindow[0].ID)
}

func TestMockAlertStorage_GetAlertsPagination(t *testing.T) {
	store := NewMockAlertStorage()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a1", "a2", "a3", "a4"} {
		require.NoError(t, store.WriteAlert(ctx, testAlert(id, "user-1", "rule-1", "AAPL", base.Add(time.Duration(i)*time.Minute))))
	}

	page, err := store.GetAlerts(ctx, AlertFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a2", page[0].ID)
	assert.Equal(t, "a3", page[1].ID)

	tail, err := store.GetAlerts(ctx, AlertFilter{Limit: 10, Offset: 3})
	require.NoError(t, err)
	assert.Len(t, tail, 1)
}

func TestMockAlertStorage_GetAlertMissing(t *testing.T) {
	store := NewMockAlertStorage()

	alert, err := store.GetAlert(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestMockRedisClient_TTLExpiry(t *testing.T) {
	client := NewMockRedisClient()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	client.Now = func() time.Time { return now }

	require.NoError(t, client.Set(ctx, "k", "v", time.Minute))

	value, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	now = now.Add(2 * time.Minute)
	value, err = client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestMockRedisClient_SetNX(t *testing.T) {
	client := NewMockRedisClient()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	client.Now = func() time.Time { return now }

	ok, err := client.SetNX(ctx, "k", "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, "k", "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// After expiry the key is free again
	now = now.Add(2 * time.Minute)
	ok, err = client.SetNX(ctx, "k", "third", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMockRedisClient_ScanKeys(t *testing.T) {
	client := NewMockRedisClient()
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "cooldown:rule-1:AAPL", "1", 0))
	require.NoError(t, client.Set(ctx, "cooldown:rule-1:MSFT", "1", 0))
	require.NoError(t, client.Set(ctx, "cooldown:rule-2:AAPL", "1", 0))

	keys, err := client.ScanKeys(ctx, "cooldown:rule-1:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"cooldown:rule-1:AAPL", "cooldown:rule-1:MSFT"}, keys)
}
