package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niftyshop/nifty-shop-bot/pkg/types"
)

func candlesWithCloses(closes ...float64) []types.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.Candle, len(closes))
	for i, c := range closes {
		out[i] = types.Candle{Date: base.AddDate(0, 0, i), Close: c}
	}
	return out
}

func TestSMA_Calculate_InsufficientData(t *testing.T) {
	sma := NewSMA(20)

	_, err := sma.Calculate(candlesWithCloses(100, 101, 102))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestSMA_Calculate_ExactPeriod(t *testing.T) {
	sma := NewSMA(4)

	value, err := sma.Calculate(candlesWithCloses(100, 102, 104, 106))
	require.NoError(t, err)
	assert.InDelta(t, 103.0, value, 0.0001)
}

func TestSMA_Calculate_UsesTrailingWindow(t *testing.T) {
	sma := NewSMA(2)

	// Only the last two closes count.
	value, err := sma.Calculate(candlesWithCloses(1000, 1000, 100, 200))
	require.NoError(t, err)
	assert.InDelta(t, 150.0, value, 0.0001)
}

func TestSMA_Period(t *testing.T) {
	assert.Equal(t, 20, NewSMA(20).Period())
}
