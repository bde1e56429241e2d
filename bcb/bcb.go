// Package bcb reads macro rate series from the Banco Central do Brasil SGS API.
//
// Series are identified by their SGS code: 12 is the CDI in percent per day,
// 433 the IPCA in percent per month.
package bcb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"github.com/brcarteira/carteira"
	"github.com/brcarteira/carteira/date"
	"github.com/brcarteira/carteira/webclient"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the public SGS endpoint.
const DefaultBaseURL = "https://api.bcb.gov.br/dados/serie/"

// sgsDate is the dd/MM/yyyy layout used by SGS both in queries and payloads.
const sgsDate = "02/01/2006"

// Client implements carteira.RateProvider.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Logger  logrus.FieldLogger
}

// New returns a Client for baseURL. An empty baseURL selects DefaultBaseURL.
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

// queried widens window to the first of its month, so that monthly series,
// dated on the first, include the month of window.From.
func queried(window date.Range) date.Range {
	return date.NewRange(window.From.StartOfMonth(), window.To)
}

// seriesURL builds the query for series id over window.
func (c *Client) seriesURL(id string, window date.Range) string {
	window = queried(window)
	q := url.Values{}
	q.Set("formato", "json")
	q.Set("dataInicial", window.From.Format(sgsDate))
	q.Set("dataFinal", window.To.Format(sgsDate))
	return fmt.Sprintf("%sbcdata.sgs.%s/dados?%s", strings.TrimRight(c.BaseURL, "/")+"/", url.PathEscape(id), q.Encode())
}

// RateSeries implements carteira.RateProvider.
//
// SGS answers 404 when the window holds no observation; this is reported as
// an empty map.
func (c *Client) RateSeries(ctx context.Context, id string, window date.Range) (carteira.RateMap, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.seriesURL(id, window), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download SGS series %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.Logger.WithFields(logrus.Fields{"series": id, "window": window}).Debug("sgs: no observation")
		return carteira.RateMap{}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("failed to download SGS series %s: received status %s", id, resp.Status)
	}

	rates, err := parseSeries(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SGS series %s: %w", id, err)
	}
	// SGS may answer with the last observation before the window.
	q := queried(window)
	maps.DeleteFunc(rates, func(on date.Date, _ float64) bool { return !q.Contains(on) })
	c.Logger.WithFields(logrus.Fields{"series": id, "window": window, "points": len(rates)}).Debug("sgs series")
	return rates, nil
}

// observation is one point of an SGS payload:
//
//	[{"data": "02/01/2024", "valor": "0.043739"}, ...]
type observation struct {
	Data  string `json:"data"`
	Valor string `json:"valor"`
}

// parseSeries reads an SGS JSON payload. Points with an empty value are skipped.
func parseSeries(r io.Reader) (carteira.RateMap, error) {
	var content []observation
	if err := json.NewDecoder(r).Decode(&content); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}
	rates := make(carteira.RateMap, len(content))
	for _, obs := range content {
		if strings.TrimSpace(obs.Valor) == "" {
			continue
		}
		day, err := date.ParseLayout(sgsDate, obs.Data)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", obs.Data, err)
		}
		val, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(obs.Valor), ",", "."))
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for date %q: %w", obs.Valor, obs.Data, err)
		}
		rates[day] = val.InexactFloat64()
	}
	return rates, nil
}
