// Package yahoo reads quote history from the Yahoo Finance v8 chart API.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/brcarteira/carteira"
	"github.com/brcarteira/carteira/webclient"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the public chart endpoint.
const DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// Client implements carteira.QuoteProvider.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Logger  logrus.FieldLogger
}

// New returns a Client for baseURL using httpClient. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, httpClient *http.Client, logger logrus.FieldLogger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = webclient.NewClient(webclient.Options{Logger: logger})
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{BaseURL: baseURL, HTTP: httpClient, Logger: logger}
}

// Symbol maps a ticker to its Yahoo symbol.
//
// Bare B3 tickers such as PETR4 or HGLG11 get the ".SA" suffix. Index symbols
// ("^BVSP") and symbols already carrying an exchange suffix are unchanged.
func Symbol(ticker string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if strings.HasPrefix(ticker, "^") || strings.Contains(ticker, ".") || strings.Contains(ticker, "=") {
		return ticker
	}
	return ticker + ".SA"
}

// chartURL builds the chart request for symbol over lookback.
func (c *Client) chartURL(symbol string, lookback carteira.Lookback) string {
	q := url.Values{}
	q.Set("range", lookback.String())
	q.Set("interval", lookback.Interval())
	q.Set("includePrePost", "false")
	return strings.TrimRight(c.BaseURL, "/") + "/" + url.PathEscape(symbol) + "?" + q.Encode()
}

// QuoteHistory implements carteira.QuoteProvider.
func (c *Client) QuoteHistory(ctx context.Context, symbol string, lookback carteira.Lookback) (*carteira.RawSeries, error) {
	ysym := Symbol(symbol)
	addr := c.chartURL(ysym, lookback)
	if lookback.Intraday() {
		// intraday bars move during the session.
		ctx = webclient.WithoutCache(ctx)
	}

	var jobj any
	if err := webclient.GetJSON(ctx, c.HTTP, addr, &jobj); err != nil {
		return nil, fmt.Errorf("error retrieving %q: %w", ysym, err)
	}
	series, err := parseChart(ysym, jobj)
	if err != nil {
		return nil, err
	}
	c.Logger.WithFields(logrus.Fields{"symbol": ysym, "range": lookback, "samples": series.Len()}).Debug("yahoo chart")
	return series, nil
}

// ErrNoData is returned when the chart carries no result.
var ErrNoData = errors.New("yahoo: no data returned")

// parseChart extracts the parallel arrays of a chart response.
//
//	{"chart": {"result": [{
//	    "timestamp": [1704200400, ...],
//	    "indicators": {"quote": [{"close": [37.1, null, ...], "open": [...], "high": [...], "low": [...]}]}
//	}], "error": null}}
func parseChart(symbol string, jobj any) (*carteira.RawSeries, error) {
	if desc, err := jsonpath.Get("$.chart.error.description", jobj); err == nil {
		if s, ok := desc.(string); ok && s != "" {
			return nil, fmt.Errorf("yahoo api error for %q: %s", symbol, s)
		}
	}
	jts, err := jsonpath.Get("$.chart.result[0].timestamp", jobj)
	if err != nil {
		return nil, fmt.Errorf("%w for %q", ErrNoData, symbol)
	}
	timestamps, err := int64s(jts)
	if err != nil {
		return nil, fmt.Errorf("error parsing %q timestamps: %w", symbol, err)
	}

	column := func(name string) ([]*float64, error) {
		path := "$.chart.result[0].indicators.quote[0]." + name
		jval, err := jsonpath.Get(path, jobj)
		if err != nil {
			// optional columns default to the close price.
			return nil, nil
		}
		values, err := floats(jval)
		if err != nil {
			return nil, fmt.Errorf("error parsing %q: %q %w", symbol, path, err)
		}
		return values, nil
	}
	closes, err := column("close")
	if err != nil {
		return nil, err
	}
	if closes == nil {
		return nil, fmt.Errorf("%w for %q: missing close prices", ErrNoData, symbol)
	}
	opens, err := column("open")
	if err != nil {
		return nil, err
	}
	highs, err := column("high")
	if err != nil {
		return nil, err
	}
	lows, err := column("low")
	if err != nil {
		return nil, err
	}
	return carteira.NewRawSeries(symbol, timestamps, closes, opens, highs, lows), nil
}

func int64s(jval any) ([]int64, error) {
	list, ok := jval.([]any)
	if !ok {
		return nil, fmt.Errorf("not a list: %T", jval)
	}
	res := make([]int64, len(list))
	for i, v := range list {
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("invalid timestamp at %d: %v", i, v)
		}
		res[i] = int64(f)
	}
	return res, nil
}

// floats keeps JSON nulls as nil.
func floats(jval any) ([]*float64, error) {
	list, ok := jval.([]any)
	if !ok {
		return nil, fmt.Errorf("not a list: %T", jval)
	}
	res := make([]*float64, len(list))
	for i, v := range list {
		switch n := v.(type) {
		case nil:
		case float64:
			res[i] = &n
		default:
			return nil, fmt.Errorf("invalid value at %d: %v", i, v)
		}
	}
	return res, nil
}
