package broker

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niftyshop/nifty-shop-bot/internal/console"
)

const testEnctoken = "test-session-token"

// newKiteTestServer fakes the Kite web and API endpoints the client uses.
func newKiteTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("user_id") != "AB1234" || r.PostForm.Get("password") != "hunter2" {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"status":"error","message":"invalid credentials"}`)
			return
		}
		fmt.Fprint(w, `{"status":"success","data":{"request_id":"req-001"}}`)
	})

	mux.HandleFunc("/api/twofa", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "req-001", r.PostForm.Get("request_id"))
		assert.Len(t, r.PostForm.Get("twofa_value"), 6)
		http.SetCookie(w, &http.Cookie{Name: "enctoken", Value: testEnctoken, Path: "/"})
		fmt.Fprint(w, `{"status":"success","data":{}}`)
	})

	mux.HandleFunc("/oms/portfolio/holdings", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "enctoken "+testEnctoken, r.Header.Get("Authorization"))
		assert.Equal(t, "3", r.Header.Get("X-Kite-Version"))
		fmt.Fprint(w, `{"status":"success","data":[
			{"tradingsymbol":"ITC","quantity":10,"average_price":400.0,"last_price":420.0,"pnl":200.0},
			{"tradingsymbol":"SOLDOUT","quantity":0,"average_price":100.0,"last_price":90.0,"pnl":0.0}
		]}`)
	})

	mux.HandleFunc("/instruments", func(w http.ResponseWriter, r *http.Request) {
		var csv bytes.Buffer
		csv.WriteString("instrument_token,exchange_token,tradingsymbol,name,exchange,instrument_type\n")
		csv.WriteString("256265,1001,ITC,ITC LTD,NSE,EQ\n")
		csv.WriteString("999999,1002,ITC24AUGFUT,ITC FUT,NFO,FUT\n")
		csv.WriteString("123456,1003,RELIANCE,RELIANCE IND,NSE,EQ\n")
		w.Write(csv.Bytes())
	})

	mux.HandleFunc("/oms/instruments/historical/256265/day", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "enctoken "+testEnctoken, r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.URL.Query().Get("from"))
		assert.NotEmpty(t, r.URL.Query().Get("to"))
		fmt.Fprint(w, `{"status":"success","data":{"candles":[
			["2024-01-02T00:00:00+0530",400.0,410.0,398.0,405.0,1000000],
			["2024-01-03T00:00:00+0530",405.0,412.0,401.0,408.5,900000]
		]}}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestKiteClient(t *testing.T, server *httptest.Server) *KiteClient {
	t.Helper()

	log := console.NewLogger()
	log.ShowEmojis = false
	log.SetSilentMode(true)

	creds := Credentials{UserID: "AB1234", Password: "hunter2", TOTPKey: rfc6238Secret}
	return NewKiteClient(creds, log, WithEndpoints(server.URL, server.URL))
}

func TestKiteClient_Login(t *testing.T) {
	server := newKiteTestServer(t)
	client := newTestKiteClient(t, server)

	require.NoError(t, client.Login(context.Background()))
	assert.Equal(t, testEnctoken, client.enctoken)
}

func TestKiteClient_LoginBadCredentials(t *testing.T) {
	server := newKiteTestServer(t)

	log := console.NewLogger()
	log.SetSilentMode(true)
	client := NewKiteClient(
		Credentials{UserID: "AB1234", Password: "wrong", TOTPKey: rfc6238Secret},
		log, WithEndpoints(server.URL, server.URL))

	err := client.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestKiteClient_Holdings(t *testing.T) {
	server := newKiteTestServer(t)
	client := newTestKiteClient(t, server)
	require.NoError(t, client.Login(context.Background()))

	holdings, err := client.Holdings(context.Background())
	require.NoError(t, err)

	// Zero-quantity rows are dropped.
	require.Len(t, holdings, 1)
	assert.Equal(t, "ITC", holdings[0].Symbol)
	assert.Equal(t, 10, holdings[0].Quantity)
	assert.Equal(t, 400.0, holdings[0].AveragePrice)
	assert.Equal(t, 420.0, holdings[0].LastPrice)
}

func TestKiteClient_HistoricalCandles(t *testing.T) {
	server := newKiteTestServer(t)
	client := newTestKiteClient(t, server)
	require.NoError(t, client.Login(context.Background()))

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	candles, err := client.HistoricalCandles(context.Background(), "ITC", from, to)
	require.NoError(t, err)

	require.Len(t, candles, 2)
	assert.Equal(t, 405.0, candles[0].Close)
	assert.Equal(t, 408.5, candles[1].Close)
	assert.Equal(t, 1000000.0, candles[0].Volume)
	assert.Equal(t, 2024, candles[0].Date.Year())
}

func TestKiteClient_UnknownInstrument(t *testing.T) {
	server := newKiteTestServer(t)
	client := newTestKiteClient(t, server)
	require.NoError(t, client.Login(context.Background()))

	// The NFO future in the dump is filtered out of the NSE equity map.
	_, err := client.HistoricalCandles(context.Background(), "ITC24AUGFUT",
		time.Now().AddDate(0, 0, -10), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown instrument")
}
