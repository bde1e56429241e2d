// Package eodhd reads end-of-day quote history from eodhd.com.
//
// It is an alternative to the yahoo package for deployments holding an EODHD
// API key. Only daily bars are available, whatever the lookback.
package eodhd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/brcarteira/carteira"
	"github.com/brcarteira/carteira/date"
	"github.com/brcarteira/carteira/webclient"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the EODHD api root.
const DefaultBaseURL = "https://eodhd.com/api/"

// Client implements carteira.QuoteProvider.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	Logger  logrus.FieldLogger
	// Today ends the requested window. Defaults to date.Today.
	Today func() date.Date
}

// New returns a Client authenticated with apiKey.
func New(baseURL, apiKey string, httpClient *http.Client, logger logrus.FieldLogger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = webclient.NewClient(webclient.Options{Logger: logger})
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{BaseURL: baseURL, APIKey: apiKey, HTTP: httpClient, Logger: logger, Today: date.Today}
}

// Ticker maps a ticker to the EODHD "CODE.EXCHANGE" form.
//
// Index symbols ("^BVSP") live on the virtual INDX exchange, bare B3
// tickers on SA. Tickers that already have an exchange suffix are unchanged.
func Ticker(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	switch {
	case strings.HasPrefix(symbol, "^"):
		return strings.TrimPrefix(symbol, "^") + ".INDX"
	case strings.Contains(symbol, "."):
		return symbol
	default:
		return symbol + ".SA"
	}
}

// bar is one item of the eod endpoint:
//
//	[{"date": "2024-02-13", "open": 675.066, "high": 684.219, "low": 648.659,
//	  "close": 668.445, "adjusted_close": 67.705, "volume": 0}, ...]
type bar struct {
	Date  date.Date        `json:"date"`
	Open  *decimal.Decimal `json:"open"`
	High  *decimal.Decimal `json:"high"`
	Low   *decimal.Decimal `json:"low"`
	Close *decimal.Decimal `json:"close"`
}

// QuoteHistory implements carteira.QuoteProvider.
func (c *Client) QuoteHistory(ctx context.Context, symbol string, lookback carteira.Lookback) (*carteira.RawSeries, error) {
	today := date.Today
	if c.Today != nil {
		today = c.Today
	}
	window := lookback.Window(today())
	ticker := Ticker(symbol)

	q := url.Values{}
	q.Set("fmt", "json")
	q.Set("api_token", c.APIKey)
	q.Set("from", window.From.String())
	q.Set("to", window.To.String())
	// bounds are included in the response.
	addr := strings.TrimRight(c.BaseURL, "/") + "/eod/" + url.PathEscape(ticker) + "?" + q.Encode()

	content := make([]bar, 0)
	if err := webclient.GetJSON(ctx, c.HTTP, addr, &content); err != nil {
		return nil, fmt.Errorf("error retrieving %q: %w", ticker, err)
	}

	n := len(content)
	timestamps := make([]int64, n)
	closes := make([]*float64, n)
	opens := make([]*float64, n)
	highs := make([]*float64, n)
	lows := make([]*float64, n)
	for i, b := range content {
		timestamps[i] = b.Date.Unix()
		closes[i] = float(b.Close)
		opens[i] = float(b.Open)
		highs[i] = float(b.High)
		lows[i] = float(b.Low)
	}
	c.Logger.WithFields(logrus.Fields{"ticker": ticker, "window": window, "bars": n}).Debug("eodhd eod")
	return carteira.NewRawSeries(ticker, timestamps, closes, opens, highs, lows), nil
}

func float(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}
