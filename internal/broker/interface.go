// Package broker talks to the Zerodha Kite endpoints the strategy needs:
// authentication, portfolio holdings, and daily candles. Order placement is
// simulated by the paper broker; no real orders are routed.
package broker

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/niftyshop/nifty-shop-bot/pkg/types"
)

// MarketData provides portfolio and price history reads.
type MarketData interface {
	// Holdings returns the positions currently held, quantity > 0 only.
	Holdings(ctx context.Context) ([]types.Holding, error)
	// HistoricalCandles returns daily candles for a symbol over [from, to].
	HistoricalCandles(ctx context.Context, symbol string, from, to time.Time) ([]types.Candle, error)
}

// OrderPlacer places equity orders.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order types.Order) (types.Order, error)
}

// Credentials hold the Zerodha login secrets.
type Credentials struct {
	UserID   string
	Password string
	TOTPKey  string
}

// CredentialsFromEnv reads credentials from KITE_USER_ID, KITE_PASSWORD and
// KITE_TOTP_KEY. All three are required for a live session.
func CredentialsFromEnv() (Credentials, error) {
	creds := Credentials{
		UserID:   os.Getenv("KITE_USER_ID"),
		Password: os.Getenv("KITE_PASSWORD"),
		TOTPKey:  os.Getenv("KITE_TOTP_KEY"),
	}

	var missing []string
	if creds.UserID == "" {
		missing = append(missing, "KITE_USER_ID")
	}
	if creds.Password == "" {
		missing = append(missing, "KITE_PASSWORD")
	}
	if creds.TOTPKey == "" {
		missing = append(missing, "KITE_TOTP_KEY")
	}
	if len(missing) > 0 {
		return Credentials{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return creds, nil
}
