package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/niftyshop/nifty-shop-bot/internal/console"
	"github.com/niftyshop/nifty-shop-bot/pkg/types"
)

// PaperBroker simulates order execution and can serve canned market data.
// Every order fills immediately at the requested price. It is both the
// order sink for live scans and the full market fixture in tests.
type PaperBroker struct {
	log *console.Logger

	mu       sync.Mutex
	seq      int
	holdings []types.Holding
	candles  map[string][]types.Candle
	orders   []types.Order
}

// NewPaperBroker creates an empty paper broker.
func NewPaperBroker(log *console.Logger) *PaperBroker {
	return &PaperBroker{
		log:     log,
		candles: make(map[string][]types.Candle),
	}
}

// Login is a no-op for the paper broker.
func (p *PaperBroker) Login(ctx context.Context) error {
	return nil
}

// SetHoldings replaces the simulated portfolio.
func (p *PaperBroker) SetHoldings(holdings []types.Holding) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.holdings = append([]types.Holding(nil), holdings...)
}

// SetCandles replaces the simulated daily candles for a symbol.
func (p *PaperBroker) SetCandles(symbol string, candles []types.Candle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.candles[symbol] = append([]types.Candle(nil), candles...)
}

// Holdings returns the simulated portfolio.
func (p *PaperBroker) Holdings(ctx context.Context) ([]types.Holding, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]types.Holding(nil), p.holdings...), nil
}

// HistoricalCandles returns the simulated candles for a symbol restricted
// to [from, to]. A symbol with no data yields an empty slice, not an error.
func (p *PaperBroker) HistoricalCandles(ctx context.Context, symbol string, from, to time.Time) ([]types.Candle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []types.Candle
	for _, c := range p.candles[symbol] {
		if c.Date.Before(from) || c.Date.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// PlaceOrder fills the order instantly and records it.
func (p *PaperBroker) PlaceOrder(ctx context.Context, order types.Order) (types.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	order.ID = fmt.Sprintf("PAPER-%04d", p.seq)
	order.Status = "COMPLETE"
	order.PlacedAt = time.Now()
	p.orders = append(p.orders, order)

	if p.log != nil {
		p.log.Info("Paper %s order %s: %d x %s @ %.2f", order.Side, order.ID, order.Quantity, order.Symbol, order.Price)
	}
	return order, nil
}

// Orders returns every order placed so far, in placement order.
func (p *PaperBroker) Orders() []types.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]types.Order(nil), p.orders...)
}
