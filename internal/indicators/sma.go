// Package indicators holds the technical indicators the scan relies on.
package indicators

import (
	"errors"

	"github.com/niftyshop/nifty-shop-bot/pkg/types"
)

// ErrInsufficientData is returned when fewer candles than the period are
// available.
var ErrInsufficientData = errors.New("insufficient data for SMA calculation")

// SMA represents the Simple Moving Average technical indicator
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

// Calculate calculates the SMA over the trailing period of closes.
func (s *SMA) Calculate(data []types.Candle) (float64, error) {
	if len(data) < s.period {
		return 0, ErrInsufficientData
	}

	sum := 0.0
	for i := len(data) - s.period; i < len(data); i++ {
		sum += data[i].Close
	}
	return sum / float64(s.period), nil
}

// Period returns the number of candles the indicator needs.
func (s *SMA) Period() int {
	return s.period
}
