// Package strategy implements the Nifty Shop strategy: sell holdings above
// the profit threshold, scan the Nifty 50 for stocks trading below their
// 20 day moving average, buy the most deviated ones within the daily limit,
// and average down on the steepest faller when nothing new qualifies.
package strategy

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/niftyshop/nifty-shop-bot/internal/broker"
	"github.com/niftyshop/nifty-shop-bot/internal/console"
	"github.com/niftyshop/nifty-shop-bot/internal/indicators"
	"github.com/niftyshop/nifty-shop-bot/internal/monitoring"
	"github.com/niftyshop/nifty-shop-bot/pkg/config"
	"github.com/niftyshop/nifty-shop-bot/pkg/types"
)

const (
	// dmaPeriod is the moving average the scan compares against.
	dmaPeriod = 20
	// scanWindowDays is how far back daily candles are fetched.
	scanWindowDays = 60
	// topCandidates caps how many scan results are eligible for buying.
	topCandidates = 5
)

// nifty50 is the scan universe.
var nifty50 = []string{
	"ADANIENT", "ADANIPORTS", "APOLLOHOSP", "ASIANPAINT", "AXISBANK",
	"BAJAJ-AUTO", "BAJFINANCE", "BAJAJFINSV", "BEL", "BHARTIARTL",
	"CIPLA", "COALINDIA", "DRREDDY", "EICHERMOT", "ETERNAL",
	"GRASIM", "HCLTECH", "HDFCBANK", "HDFCLIFE", "HEROMOTOCO",
	"HINDALCO", "HINDUNILVR", "ICICIBANK", "ITC", "INDUSINDBK",
	"INFY", "JSWSTEEL", "JIOFIN", "KOTAKBANK", "LT",
	"M&M", "MARUTI", "NTPC", "NESTLEIND", "ONGC",
	"POWERGRID", "RELIANCE", "SBILIFE", "SHRIRAMFIN", "SBIN",
	"SUNPHARMA", "TCS", "TATACONSUM", "TATAMOTORS", "TATASTEEL",
	"TECHM", "TITAN", "TRENT", "ULTRACEMCO", "WIPRO",
}

// ScanResult is one symbol's position relative to its moving average.
type ScanResult struct {
	Symbol    string
	Close     float64
	DMA       float64
	Deviation float64
}

// Summary reports what a strategy run did.
type Summary struct {
	ExecutedAt time.Time
	Sold       []types.Order
	Bought     []types.Order
	Scan       []ScanResult
	Eligible   []string
	Holdings   []types.Holding
}

// Runner executes one full strategy pass against a market data source and
// an order sink. The configuration document is taken by value; a run never
// mutates it.
type Runner struct {
	cfg     config.Document
	data    broker.MarketData
	orders  broker.OrderPlacer
	log     *console.Logger
	out     io.Writer
	metrics *monitoring.Metrics
	now     func() time.Time
	dma     *indicators.SMA

	universe []string
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithMetrics attaches a metrics collector to the runner.
func WithMetrics(m *monitoring.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithOutput redirects the runner's tables.
func WithOutput(out io.Writer) RunnerOption {
	return func(r *Runner) { r.out = out }
}

// WithClock overrides the runner's clock.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithUniverse overrides the scan universe.
func WithUniverse(symbols []string) RunnerOption {
	return func(r *Runner) { r.universe = symbols }
}

// NewRunner creates a runner for one strategy pass.
func NewRunner(cfg config.Document, data broker.MarketData, orders broker.OrderPlacer, log *console.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:      cfg,
		data:     data,
		orders:   orders,
		log:      log,
		out:      os.Stdout,
		now:      time.Now,
		dma:      indicators.NewSMA(dmaPeriod),
		universe: nifty50,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs sell, scan, and buy in order and returns what happened.
func (r *Runner) Execute(ctx context.Context) (*Summary, error) {
	r.log.Step("Strategy", "Executing Nifty Shop: sell, scan, buy")
	summary := &Summary{ExecutedAt: r.now()}

	sold, err := r.sellPass(ctx)
	if err != nil {
		return nil, err
	}
	summary.Sold = sold

	scan, err := r.scanUniverse(ctx)
	if err != nil {
		return nil, err
	}
	summary.Scan = scan
	summary.Eligible = eligibleSymbols(scan)

	if len(summary.Eligible) == 0 {
		r.log.Info("No stocks trading below their %d day moving average today", dmaPeriod)
	} else {
		bought, err := r.buyPass(ctx, summary.Eligible, scan)
		if err != nil {
			return nil, err
		}
		summary.Bought = bought
	}

	holdings, err := r.data.Holdings(ctx)
	if err != nil {
		return nil, fmt.Errorf("refreshing holdings: %w", err)
	}
	summary.Holdings = holdings

	r.log.Success("Strategy run complete: %d sold, %d bought, %d holdings",
		len(summary.Sold), len(summary.Bought), len(summary.Holdings))
	return summary, nil
}

// sellPass sells every holding whose profit exceeds the configured
// threshold, most profitable first.
func (r *Runner) sellPass(ctx context.Context) ([]types.Order, error) {
	r.log.Step("Sell Logic", "Checking holdings for positions above %.1f%% profit", r.cfg.ProfitThreshold)

	holdings, err := r.data.Holdings(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching holdings: %w", err)
	}
	if len(holdings) == 0 {
		r.log.Info("No current holdings, nothing to sell")
		return nil, nil
	}

	type candidate struct {
		holding types.Holding
		profit  float64
	}
	var profitable []candidate

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("HOLDINGS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Qty", "Avg Price", "Last Price", "P&L %"})

	for _, h := range holdings {
		if h.AveragePrice == 0 {
			continue
		}
		profit := (h.LastPrice - h.AveragePrice) / h.AveragePrice * 100
		t.AppendRow(table.Row{h.Symbol, h.Quantity,
			fmt.Sprintf("%.2f", h.AveragePrice),
			fmt.Sprintf("%.2f", h.LastPrice),
			fmt.Sprintf("%.2f%%", profit)})
		if profit > r.cfg.ProfitThreshold {
			profitable = append(profitable, candidate{holding: h, profit: profit})
		}
	}
	t.Render()

	if len(profitable) == 0 {
		r.log.Info("No holdings above the %.1f%% profit threshold", r.cfg.ProfitThreshold)
		return nil, nil
	}

	sort.Slice(profitable, func(i, j int) bool {
		return profitable[i].profit > profitable[j].profit
	})

	var sold []types.Order
	for _, c := range profitable {
		order, err := r.place(ctx, types.Order{
			Symbol:   c.holding.Symbol,
			Side:     types.OrderSell,
			Quantity: c.holding.Quantity,
			Price:    c.holding.LastPrice,
		})
		if err != nil {
			return sold, err
		}
		r.log.Info("Sold %s at %.2f (%.2f%% profit)", c.holding.Symbol, c.holding.LastPrice, c.profit)
		sold = append(sold, order)
	}
	return sold, nil
}

// scanUniverse computes each symbol's deviation from its moving average
// and returns the ones trading below it, most deviated first. Symbols with
// missing or short history are skipped with a warning, never fail the scan.
func (r *Runner) scanUniverse(ctx context.Context) ([]ScanResult, error) {
	r.log.Step("Analysis", "Scanning %d symbols for closes below the %d day moving average", len(r.universe), dmaPeriod)

	to := r.now()
	from := to.AddDate(0, 0, -scanWindowDays)

	var results []ScanResult
	for _, symbol := range r.universe {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candles, err := r.data.HistoricalCandles(ctx, symbol, from, to)
		if err != nil {
			r.log.Warn("Skipping %s: %v", symbol, err)
			r.recordScanError()
			continue
		}
		dma, err := r.dma.Calculate(candles)
		if err != nil {
			r.log.Warn("Skipping %s: %v", symbol, err)
			r.recordScanError()
			continue
		}

		latest := candles[len(candles)-1].Close
		if r.metrics != nil {
			r.metrics.ObserveClose(symbol, latest)
		}

		deviation := (latest - dma) / dma * 100
		if deviation < 0 {
			results = append(results, ScanResult{
				Symbol:    symbol,
				Close:     latest,
				DMA:       dma,
				Deviation: deviation,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Deviation < results[j].Deviation
	})
	if r.metrics != nil {
		r.metrics.SetScanCandidates(len(results))
	}

	r.printScan(results)
	return results, nil
}

// buyPass buys up to the daily limit of new symbols from the eligible list.
// When every eligible symbol is already held, it averages down instead: one
// extra share of the holding that has fallen furthest past the loss
// threshold.
func (r *Runner) buyPass(ctx context.Context, eligible []string, scan []ScanResult) ([]types.Order, error) {
	r.log.Step("Trade Execution", "Buy logic for %d eligible stocks (daily limit %d)", len(eligible), r.cfg.DailyTradeLimit)

	holdings, err := r.data.Holdings(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching holdings: %w", err)
	}
	held := make(map[string]types.Holding, len(holdings))
	for _, h := range holdings {
		held[h.Symbol] = h
	}

	closes := make(map[string]float64, len(scan))
	for _, s := range scan {
		closes[s.Symbol] = s.Close
	}

	var bought []types.Order
	for _, symbol := range eligible {
		if _, ok := held[symbol]; ok {
			continue
		}
		if len(bought) >= r.cfg.DailyTradeLimit {
			r.log.Warn("Daily trade limit (%d) reached, skipping %s", r.cfg.DailyTradeLimit, symbol)
			continue
		}

		order, err := r.place(ctx, types.Order{
			Symbol:   symbol,
			Side:     types.OrderBuy,
			Quantity: 1,
			Price:    closes[symbol],
		})
		if err != nil {
			return bought, err
		}
		r.log.Info("Bought new stock %s at %.2f", symbol, closes[symbol])
		bought = append(bought, order)
	}

	if len(bought) > 0 {
		return bought, nil
	}

	r.log.Info("All eligible stocks already held, checking holdings for averaging")
	return r.averageDown(ctx, holdings)
}

// averageDown buys one more share of the holding that has fallen the most
// since it was bought, provided the fall breaches the loss threshold.
func (r *Runner) averageDown(ctx context.Context, holdings []types.Holding) ([]types.Order, error) {
	var (
		pick   *types.Holding
		change float64
	)

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("AVERAGING ANALYSIS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Buy Price", "Current Price", "Change %", "Eligible"})

	for i := range holdings {
		h := holdings[i]
		if h.AveragePrice == 0 {
			continue
		}
		pct := (h.LastPrice - h.AveragePrice) / h.AveragePrice * 100

		eligible := pct <= r.cfg.LossThreshold
		t.AppendRow(table.Row{h.Symbol,
			fmt.Sprintf("%.2f", h.AveragePrice),
			fmt.Sprintf("%.2f", h.LastPrice),
			fmt.Sprintf("%.2f%%", pct),
			eligible})

		if eligible && (pick == nil || pct < change) {
			pick = &holdings[i]
			change = pct
		}
	}
	t.Render()

	if pick == nil {
		r.log.Info("No holding has fallen past %.1f%%, no trades today", r.cfg.LossThreshold)
		return nil, nil
	}

	r.log.Info("Averaging down on %s (%.2f%% since buy)", pick.Symbol, change)
	order, err := r.place(ctx, types.Order{
		Symbol:   pick.Symbol,
		Side:     types.OrderBuy,
		Quantity: 1,
		Price:    pick.LastPrice,
	})
	if err != nil {
		return nil, err
	}
	return []types.Order{order}, nil
}

func (r *Runner) place(ctx context.Context, order types.Order) (types.Order, error) {
	placed, err := r.orders.PlaceOrder(ctx, order)
	if err != nil {
		return types.Order{}, fmt.Errorf("placing %s order for %s: %w", order.Side, order.Symbol, err)
	}
	if r.metrics != nil {
		r.metrics.RecordOrder(placed.Symbol, string(placed.Side))
	}
	return placed, nil
}

func (r *Runner) recordScanError() {
	if r.metrics != nil {
		r.metrics.RecordScanError()
	}
}

func (r *Runner) printScan(results []ScanResult) {
	if len(results) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("SCAN RESULTS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Symbol", "Close", fmt.Sprintf("%d DMA", dmaPeriod), "Deviation"})
	for i, s := range results {
		t.AppendRow(table.Row{i + 1, s.Symbol,
			fmt.Sprintf("%.2f", s.Close),
			fmt.Sprintf("%.2f", s.DMA),
			fmt.Sprintf("%.2f%%", s.Deviation)})
	}
	t.Render()
}

// eligibleSymbols returns the most deviated symbols, capped at the
// candidate limit.
func eligibleSymbols(scan []ScanResult) []string {
	n := len(scan)
	if n > topCandidates {
		n = topCandidates
	}
	symbols := make([]string, 0, n)
	for _, s := range scan[:n] {
		symbols = append(symbols, s.Symbol)
	}
	return symbols
}
