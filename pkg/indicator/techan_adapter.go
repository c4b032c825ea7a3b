package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
)

// TechanRSI wraps techan's RSI indicator behind the Calculator
// interface. The indicator is built over the adapter's own series so
// every appended candle is visible to it.
type TechanRSI struct {
	name      string
	period    int
	series    *techan.TimeSeries
	indicator techan.Indicator
}

// NewTechanRSI creates a techan-backed RSI calculator
func NewTechanRSI(period int) (*TechanRSI, error) {
	if period < 2 {
		return nil, fmt.Errorf("RSI period must be at least 2, got %d", period)
	}

	series := techan.NewTimeSeries()
	closePrice := techan.NewClosePriceIndicator(series)

	return &TechanRSI{
		name:      fmt.Sprintf("rsi_%d", period),
		period:    period,
		series:    series,
		indicator: techan.NewRelativeStrengthIndexIndicator(closePrice, period),
	}, nil
}

func (t *TechanRSI) Name() string {
	return t.name
}

// Update appends a daily candle and returns the indicator value, or 0
// while the series is shorter than the warm-up window.
func (t *TechanRSI) Update(bar *models.DailyBar) (float64, error) {
	if bar == nil {
		return 0, fmt.Errorf("bar cannot be nil")
	}

	timePeriod := techan.NewTimePeriod(bar.Date, 24*time.Hour)
	candle := techan.NewCandle(timePeriod)
	candle.OpenPrice = big.NewDecimal(bar.Open)
	candle.MaxPrice = big.NewDecimal(bar.High)
	candle.MinPrice = big.NewDecimal(bar.Low)
	candle.ClosePrice = big.NewDecimal(bar.Close)
	candle.Volume = big.NewDecimal(float64(bar.Volume))

	t.series.AddCandle(candle)

	if !t.IsReady() {
		return 0, nil
	}

	value := t.indicator.Calculate(t.series.LastIndex()).Float()
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("techan RSI produced a non-finite value")
	}
	return value, nil
}

func (t *TechanRSI) Value() (float64, error) {
	if !t.IsReady() {
		return 0, fmt.Errorf("RSI not ready: need at least %d bars", t.WindowSize())
	}
	return t.indicator.Calculate(t.series.LastIndex()).Float(), nil
}

func (t *TechanRSI) Reset() {
	t.series = techan.NewTimeSeries()
	closePrice := techan.NewClosePriceIndicator(t.series)
	t.indicator = techan.NewRelativeStrengthIndexIndicator(closePrice, t.period)
}

func (t *TechanRSI) IsReady() bool {
	return t.BarsProcessed() >= t.WindowSize()
}

// WindowSize returns the number of bars required (period + 1 for first change)
func (t *TechanRSI) WindowSize() int {
	return t.period + 1
}

// BarsProcessed returns the number of bars processed so far
func (t *TechanRSI) BarsProcessed() int {
	return t.series.LastIndex() + 1
}
