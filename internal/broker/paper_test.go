package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niftyshop/nifty-shop-bot/pkg/types"
)

func TestPaperBroker_PlaceOrderFillsImmediately(t *testing.T) {
	paper := NewPaperBroker(nil)

	first, err := paper.PlaceOrder(context.Background(), types.Order{
		Symbol: "ITC", Side: types.OrderBuy, Quantity: 1, Price: 405.0,
	})
	require.NoError(t, err)
	second, err := paper.PlaceOrder(context.Background(), types.Order{
		Symbol: "TCS", Side: types.OrderSell, Quantity: 2, Price: 3900.0,
	})
	require.NoError(t, err)

	assert.Equal(t, "PAPER-0001", first.ID)
	assert.Equal(t, "PAPER-0002", second.ID)
	assert.Equal(t, "COMPLETE", first.Status)
	assert.False(t, first.PlacedAt.IsZero())

	orders := paper.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, "ITC", orders[0].Symbol)
	assert.Equal(t, "TCS", orders[1].Symbol)
}

func TestPaperBroker_HistoricalCandlesFiltersRange(t *testing.T) {
	paper := NewPaperBroker(nil)

	day := func(d int) time.Time {
		return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
	}
	paper.SetCandles("ITC", []types.Candle{
		{Date: day(1), Close: 400},
		{Date: day(2), Close: 405},
		{Date: day(3), Close: 410},
	})

	candles, err := paper.HistoricalCandles(context.Background(), "ITC", day(2), day(3))
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 405.0, candles[0].Close)

	// A symbol without data is empty, not an error.
	none, err := paper.HistoricalCandles(context.Background(), "TCS", day(1), day(3))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("KITE_USER_ID", "AB1234")
	t.Setenv("KITE_PASSWORD", "hunter2")
	t.Setenv("KITE_TOTP_KEY", rfc6238Secret)

	creds, err := CredentialsFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "AB1234", creds.UserID)

	t.Setenv("KITE_PASSWORD", "")
	_, err = CredentialsFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KITE_PASSWORD")
}
