package market

import (
	"context"
	"errors"
	"strings"

	"github.com/mjhoover1/Intelligent-Investing/internal/config"
	"github.com/mjhoover1/Intelligent-Investing/internal/models"
)

var (
	// ErrUnknownProvider is returned for an unrecognized provider type
	ErrUnknownProvider = errors.New("unknown market provider type")
	// ErrNoData is returned when the provider has no data for a symbol
	ErrNoData = errors.New("no market data for symbol")
)

// Provider defines the interface for market data providers. A snapshot
// carries the latest price plus the indicators the rule engine needs.
type Provider interface {
	// FetchSnapshot fetches the current market snapshot for a symbol
	FetchSnapshot(ctx context.Context, symbol string) (*models.MarketSnapshot, error)

	// Name returns the name of the provider (e.g., "yahoo", "mock")
	Name() string
}

// NewProvider creates a provider from configuration
func NewProvider(cfg config.MarketConfig) (Provider, error) {
	switch cfg.Provider {
	case "yahoo":
		return NewYahooProvider(cfg)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, ErrUnknownProvider
	}
}

// NormalizeSymbol maps broker-style suffixes onto the tickers the data
// provider understands. Warrants are the common offender: "/WS" in
// brokerage exports corresponds to "-WT" upstream.
func NormalizeSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))
	if strings.HasSuffix(symbol, "/WS") {
		return strings.TrimSuffix(symbol, "/WS") + "-WT"
	}
	return strings.ReplaceAll(symbol, "/", "-")
}
