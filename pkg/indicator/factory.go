package indicator

import (
	"fmt"
)

// Engine names accepted by NewRSICalculator.
const (
	EngineNative = "native"
	EngineTechan = "techan"
)

// NewRSICalculator returns an RSI calculator backed by the requested
// engine. Both engines implement Wilder's smoothing; "techan" delegates
// to the sdcoffey/techan implementation.
func NewRSICalculator(engine string, period int) (WindowedCalculator, error) {
	switch engine {
	case EngineNative:
		return NewRSI(period)
	case EngineTechan:
		return NewTechanRSI(period)
	default:
		return nil, fmt.Errorf("unknown indicator engine %q", engine)
	}
}
