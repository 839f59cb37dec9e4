package types

import "time"

// Candle represents one daily OHLCV bar for a symbol.
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Holding represents one position currently held in the portfolio.
type Holding struct {
	Symbol       string    `json:"trading_symbol"`
	Quantity     int       `json:"quantity"`
	AveragePrice float64   `json:"average_price"`
	LastPrice    float64   `json:"last_price"`
	PnL          float64   `json:"pnl"`
	LastBuyTime  time.Time `json:"last_buy_time"`
}

// OrderSide distinguishes buy orders from sell orders.
type OrderSide string

const (
	OrderBuy  OrderSide = "BUY"
	OrderSell OrderSide = "SELL"
)

// Order represents a single equity order.
type Order struct {
	ID       string    `json:"id"`
	Symbol   string    `json:"symbol"`
	Side     OrderSide `json:"side"`
	Quantity int       `json:"quantity"`
	Price    float64   `json:"price"`
	Status   string    `json:"status"`
	PlacedAt time.Time `json:"placed_at"`
}
