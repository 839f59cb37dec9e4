package broker

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/niftyshop/nifty-shop-bot/internal/console"
	"github.com/niftyshop/nifty-shop-bot/pkg/types"
)

const (
	defaultKiteURL = "https://kite.zerodha.com"
	defaultAPIURL  = "https://api.kite.trade"

	kiteVersion = "3"

	// Kite returns candle timestamps like "2024-01-02T00:00:00+0530".
	kiteCandleLayout = "2006-01-02T15:04:05-0700"
)

// kiteEnvelope is the {"status": ..., "data": ...} wrapper on every Kite
// JSON response.
type kiteEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// KiteClient authenticates against Zerodha Kite with password plus TOTP and
// reads holdings and historical candles. It deliberately implements
// MarketData but not OrderPlacer; live order routing is out of scope.
type KiteClient struct {
	http    *http.Client
	kiteURL string
	apiURL  string
	creds   Credentials
	log     *console.Logger
	now     func() time.Time

	enctoken string
	tokens   map[string]string
}

// Option customizes a KiteClient.
type Option func(*KiteClient)

// WithEndpoints overrides the Kite web and API base URLs.
func WithEndpoints(kiteURL, apiURL string) Option {
	return func(k *KiteClient) {
		k.kiteURL = strings.TrimRight(kiteURL, "/")
		k.apiURL = strings.TrimRight(apiURL, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(k *KiteClient) {
		k.http = c
	}
}

// WithClock overrides the clock used for TOTP generation.
func WithClock(now func() time.Time) Option {
	return func(k *KiteClient) {
		k.now = now
	}
}

// NewKiteClient creates a client for the given credentials. Login must be
// called before any data method.
func NewKiteClient(creds Credentials, log *console.Logger, opts ...Option) *KiteClient {
	jar, _ := cookiejar.New(nil)
	k := &KiteClient{
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		kiteURL: defaultKiteURL,
		apiURL:  defaultAPIURL,
		creds:   creds,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Login performs the two step Kite web login: user id plus password, then
// the TOTP second factor. On success the session enctoken is captured and
// attached to every subsequent request.
func (k *KiteClient) Login(ctx context.Context) error {
	k.log.Step("Login", "authenticating %s with Zerodha", k.creds.UserID)

	form := url.Values{
		"user_id":  {k.creds.UserID},
		"password": {k.creds.Password},
	}
	resp, err := k.postForm(ctx, k.kiteURL+"/api/login", form)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	var login struct {
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(resp, &login); err != nil || login.RequestID == "" {
		return fmt.Errorf("login response missing request_id")
	}

	code, err := totpCode(k.creds.TOTPKey, k.now())
	if err != nil {
		return err
	}
	form = url.Values{
		"user_id":     {k.creds.UserID},
		"request_id":  {login.RequestID},
		"twofa_value": {code},
		"twofa_type":  {"totp"},
	}
	if _, err := k.postForm(ctx, k.kiteURL+"/api/twofa", form); err != nil {
		return fmt.Errorf("two factor step failed: %w", err)
	}

	base, err := url.Parse(k.kiteURL)
	if err != nil {
		return err
	}
	for _, c := range k.http.Jar.Cookies(base) {
		if c.Name == "enctoken" && c.Value != "" {
			k.enctoken = c.Value
		}
	}
	if k.enctoken == "" {
		return fmt.Errorf("login succeeded but no enctoken cookie was issued")
	}

	k.log.Success("Zerodha session established for %s", k.creds.UserID)
	return nil
}

// Holdings returns the equity positions with a nonzero quantity.
func (k *KiteClient) Holdings(ctx context.Context) ([]types.Holding, error) {
	data, err := k.getJSON(ctx, k.kiteURL+"/oms/portfolio/holdings")
	if err != nil {
		return nil, fmt.Errorf("fetching holdings: %w", err)
	}

	var rows []struct {
		TradingSymbol string  `json:"tradingsymbol"`
		Quantity      int     `json:"quantity"`
		AveragePrice  float64 `json:"average_price"`
		LastPrice     float64 `json:"last_price"`
		PnL           float64 `json:"pnl"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decoding holdings: %w", err)
	}

	holdings := make([]types.Holding, 0, len(rows))
	for _, r := range rows {
		if r.Quantity <= 0 {
			continue
		}
		holdings = append(holdings, types.Holding{
			Symbol:       r.TradingSymbol,
			Quantity:     r.Quantity,
			AveragePrice: r.AveragePrice,
			LastPrice:    r.LastPrice,
			PnL:          r.PnL,
			// Kite does not report when a position was last added to, so
			// the session start stands in for it.
			LastBuyTime: k.now(),
		})
	}
	return holdings, nil
}

// HistoricalCandles returns daily candles for an NSE equity symbol over
// [from, to] inclusive.
func (k *KiteClient) HistoricalCandles(ctx context.Context, symbol string, from, to time.Time) ([]types.Candle, error) {
	token, err := k.instrumentToken(ctx, symbol)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/oms/instruments/historical/%s/day?from=%s&to=%s&continuous=0&oi=0",
		k.kiteURL, token, from.Format("2006-01-02"), to.Format("2006-01-02"))
	data, err := k.getJSON(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetching candles for %s: %w", symbol, err)
	}

	var payload struct {
		Candles [][]json.RawMessage `json:"candles"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding candles for %s: %w", symbol, err)
	}

	candles := make([]types.Candle, 0, len(payload.Candles))
	for _, row := range payload.Candles {
		if len(row) < 6 {
			continue
		}
		var stamp string
		if err := json.Unmarshal(row[0], &stamp); err != nil {
			return nil, fmt.Errorf("bad candle timestamp for %s", symbol)
		}
		ts, err := time.Parse(kiteCandleLayout, stamp)
		if err != nil {
			return nil, fmt.Errorf("bad candle timestamp %q for %s", stamp, symbol)
		}

		var ohlcv [5]float64
		for i := 0; i < 5; i++ {
			if err := json.Unmarshal(row[i+1], &ohlcv[i]); err != nil {
				return nil, fmt.Errorf("bad candle value for %s", symbol)
			}
		}
		candles = append(candles, types.Candle{
			Date:   ts,
			Open:   ohlcv[0],
			High:   ohlcv[1],
			Low:    ohlcv[2],
			Close:  ohlcv[3],
			Volume: ohlcv[4],
		})
	}
	return candles, nil
}

// instrumentToken resolves a trading symbol to its Kite instrument token,
// loading the NSE equity instrument dump on first use.
func (k *KiteClient) instrumentToken(ctx context.Context, symbol string) (string, error) {
	if k.tokens == nil {
		if err := k.loadInstruments(ctx); err != nil {
			return "", err
		}
	}
	token, ok := k.tokens[symbol]
	if !ok {
		return "", fmt.Errorf("unknown instrument %s", symbol)
	}
	return token, nil
}

func (k *KiteClient) loadInstruments(ctx context.Context) error {
	k.log.Step("Instruments", "loading NSE instrument list")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.apiURL+"/instruments", nil)
	if err != nil {
		return err
	}
	k.authorize(req)

	resp, err := k.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetching instruments: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching instruments: unexpected status %s", resp.Status)
	}

	r := csv.NewReader(resp.Body)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("reading instrument header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}
	for _, need := range []string{"instrument_token", "tradingsymbol", "exchange", "instrument_type"} {
		if _, ok := col[need]; !ok {
			return fmt.Errorf("instrument dump is missing column %s", need)
		}
	}

	tokens := make(map[string]string)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading instruments: %w", err)
		}
		if row[col["exchange"]] != "NSE" || row[col["instrument_type"]] != "EQ" {
			continue
		}
		tokens[row[col["tradingsymbol"]]] = row[col["instrument_token"]]
	}

	k.tokens = tokens
	k.log.Debug("loaded %d NSE equity instruments", len(tokens))
	return nil
}

// postForm sends a form POST and unwraps the response envelope.
func (k *KiteClient) postForm(ctx context.Context, endpoint string, form url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Kite-Version", kiteVersion)

	resp, err := k.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeEnvelope(resp)
}

// getJSON sends an authorized GET and unwraps the response envelope.
func (k *KiteClient) getJSON(ctx context.Context, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	k.authorize(req)

	resp, err := k.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeEnvelope(resp)
}

func (k *KiteClient) authorize(req *http.Request) {
	if k.enctoken != "" {
		req.Header.Set("Authorization", "enctoken "+k.enctoken)
	}
	req.Header.Set("X-Kite-Version", kiteVersion)
}

func decodeEnvelope(resp *http.Response) (json.RawMessage, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var env kiteEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unexpected response (status %s)", resp.Status)
	}
	if env.Status != "success" {
		msg := env.Message
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("kite error: %s", msg)
	}
	return env.Data, nil
}
