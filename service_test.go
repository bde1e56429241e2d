package carteira

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/brcarteira/carteira/date"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuotes struct {
	mu     sync.Mutex
	series map[string]*RawSeries
	errs   map[string]error
	calls  []string
	// hook runs at the start of every call.
	hook func(ctx context.Context, symbol string) error
}

func (f *fakeQuotes) QuoteHistory(ctx context.Context, symbol string, _ Lookback) (*RawSeries, error) {
	f.mu.Lock()
	f.calls = append(f.calls, symbol)
	f.mu.Unlock()
	if f.hook != nil {
		if err := f.hook(ctx, symbol); err != nil {
			return nil, err
		}
	}
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	s, ok := f.series[symbol]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return s, nil
}

type fakeRates struct {
	mu      sync.Mutex
	rates   map[string]RateMap
	errs    map[string]error
	windows []date.Range
	hook    func(ctx context.Context, id string) error
}

func (f *fakeRates) RateSeries(ctx context.Context, id string, window date.Range) (RateMap, error) {
	f.mu.Lock()
	f.windows = append(f.windows, window)
	f.mu.Unlock()
	if f.hook != nil {
		if err := f.hook(ctx, id); err != nil {
			return nil, err
		}
	}
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	return f.rates[id], nil
}

func newTestService(quotes *fakeQuotes, rates *fakeRates) (*Service, *test.Hook) {
	logger, hook := test.NewNullLogger()
	svc := NewService(quotes, rates, logger)
	svc.Today = func() date.Date { return monday.Add(4) }
	return svc, hook
}

func healthyProviders() (*fakeQuotes, *fakeRates) {
	quotes := &fakeQuotes{series: map[string]*RawSeries{
		"PETR4.SA": daily("PETR4.SA", monday, p(30), p(31), p(33)),
		"^BVSP":    daily("^BVSP", monday, p(100), p(101), p(102)),
		"IFIX.SA":  daily("IFIX.SA", monday, p(3000), p(3000), p(3030)),
	}}
	rates := &fakeRates{rates: map[string]RateMap{
		DefaultCDISeries:  {monday: 0.04, monday.Add(1): 0.04, monday.Add(2): 0.04},
		DefaultIPCASeries: {monday.StartOfMonth(): 0.4},
	}}
	return quotes, rates
}

func TestHistory(t *testing.T) {
	quotes, rates := healthyProviders()
	svc, hook := newTestService(quotes, rates)

	resp, err := svc.History(context.Background(), "PETR4.SA", "1mo")
	require.NoError(t, err)

	assert.Equal(t, "PETR4.SA", resp.Ticker)
	assert.Equal(t, "1mo", resp.Range)
	require.Len(t, resp.Data, 3)
	assert.InDelta(t, 10, resp.Data[2].AssetPct, delta)
	assert.InDelta(t, 2, *resp.Data[2].IbovPct, delta)
	assert.InDelta(t, 1, *resp.Data[2].IfixPct, delta)
	assert.ElementsMatch(t, []string{"PETR4.SA", "^BVSP", "IFIX.SA"}, quotes.calls)
	assert.Empty(t, hook.AllEntries())

	// Both rate series are queried over the range's window.
	want := Lookback1M.Window(monday.Add(4))
	require.Len(t, rates.windows, 2)
	for _, w := range rates.windows {
		assert.Equal(t, want, w)
	}
}

func TestHistoryEchoesRequest(t *testing.T) {
	quotes, rates := healthyProviders()
	svc, _ := newTestService(quotes, rates)

	resp, err := svc.History(context.Background(), " petr4.sa", "1MO")
	require.NoError(t, err)
	assert.Equal(t, " petr4.sa", resp.Ticker)
	assert.Equal(t, "1MO", resp.Range)
}

func TestHistoryInvalidInput(t *testing.T) {
	testCases := []struct {
		name   string
		ticker string
		rng    string
	}{
		{"empty ticker", "", "1y"},
		{"malformed ticker", "PETR4; DROP", "1y"},
		{"too long ticker", "ABCDEFGHIJKLMNOPQRSTUVWXYZ", "1y"},
		{"unknown range", "PETR4.SA", "3w"},
		{"empty range", "PETR4.SA", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			quotes, rates := healthyProviders()
			svc, _ := newTestService(quotes, rates)

			_, err := svc.History(context.Background(), tc.ticker, tc.rng)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Empty(t, quotes.calls, "no upstream call on invalid input")
			assert.Empty(t, rates.windows, "no upstream call on invalid input")
		})
	}
}

func TestHistoryAssetNotFound(t *testing.T) {
	quotes, rates := healthyProviders()
	quotes.errs = map[string]error{"PETR4.SA": errors.New("404")}
	svc, _ := newTestService(quotes, rates)

	_, err := svc.History(context.Background(), "PETR4.SA", "1y")
	assert.ErrorIs(t, err, ErrAssetNotFound)

	quotes.errs = nil
	quotes.series["PETR4.SA"] = daily("PETR4.SA", monday, nil, nil)
	_, err = svc.History(context.Background(), "PETR4.SA", "1y")
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestHistoryInternalError(t *testing.T) {
	t.Run("out of order samples", func(t *testing.T) {
		quotes, rates := healthyProviders()
		quotes.series["PETR4.SA"] = onDays("PETR4.SA", []date.Date{monday.Add(1), monday}, p(30), p(31))
		svc, _ := newTestService(quotes, rates)
		_, err := svc.History(context.Background(), "PETR4.SA", "1mo")
		assert.ErrorIs(t, err, ErrInternal)
	})
	t.Run("asset provider panics", func(t *testing.T) {
		quotes, rates := healthyProviders()
		quotes.hook = func(_ context.Context, symbol string) error {
			if symbol == "PETR4.SA" {
				panic("nil chart")
			}
			return nil
		}
		svc, hook := newTestService(quotes, rates)
		_, err := svc.History(context.Background(), "PETR4.SA", "1mo")
		assert.ErrorIs(t, err, ErrInternal)
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	})
}

func TestHistoryPanickingBenchmarkDegrades(t *testing.T) {
	quotes, rates := healthyProviders()
	quotes.hook = func(_ context.Context, symbol string) error {
		if symbol == "^BVSP" {
			panic("nil chart")
		}
		return nil
	}
	rates.hook = func(_ context.Context, id string) error {
		if id == DefaultIPCASeries {
			panic("bad payload")
		}
		return nil
	}
	svc, _ := newTestService(quotes, rates)

	resp, err := svc.History(context.Background(), "PETR4.SA", "1mo")
	require.NoError(t, err)
	require.Len(t, resp.Data, 3)
	for i, row := range resp.Data {
		assert.Nil(t, row.IbovPct, "row %d", i)
		assert.NotNil(t, row.IfixPct, "row %d", i)
	}
	f := math.Pow(1+svc.Options.FallbackMonthlyRate/100, 1.0/21)
	assert.InDelta(t, (f*f-1)*100, resp.Data[2].IPCAPct, delta, "ipca on the fallback rate")
}

func TestHistoryDegradedUpstreams(t *testing.T) {
	quotes, rates := healthyProviders()
	quotes.errs = map[string]error{"^BVSP": errors.New("yahoo: status 500")}
	rates.errs = map[string]error{DefaultCDISeries: errors.New("sgs timeout")}
	rates.rates[DefaultIPCASeries] = RateMap{}
	svc, hook := newTestService(quotes, rates)

	resp, err := svc.History(context.Background(), "PETR4.SA", "5d")
	require.NoError(t, err)

	for i, row := range resp.Data {
		assert.Nil(t, row.IbovPct, "row %d", i)
		assert.NotNil(t, row.IfixPct, "row %d", i)
	}
	// Monday to Wednesday on the fallback rate.
	fb := svc.Options.FallbackDailyRate
	assert.InDelta(t, ((1+fb/100)*(1+fb/100)-1)*100, resp.Data[2].CDIPct, delta)

	degraded := map[string]bool{}
	for _, e := range hook.AllEntries() {
		assert.Equal(t, logrus.WarnLevel, e.Level)
		degraded[e.Data["series"].(string)] = true
	}
	assert.Equal(t, map[string]bool{"ibov": true, "cdi": true, "ipca": true}, degraded)
}

func TestHistoryFetchesConcurrently(t *testing.T) {
	quotes, rates := healthyProviders()
	var arrived sync.WaitGroup
	arrived.Add(5)
	all := make(chan struct{})
	go func() { arrived.Wait(); close(all) }()
	barrier := func(ctx context.Context) error {
		arrived.Done()
		select {
		case <-all:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	quotes.hook = func(ctx context.Context, _ string) error { return barrier(ctx) }
	rates.hook = func(ctx context.Context, _ string) error { return barrier(ctx) }
	svc, hook := newTestService(quotes, rates)
	svc.Timeout = 5 * time.Second

	resp, err := svc.History(context.Background(), "PETR4.SA", "1mo")
	require.NoError(t, err)
	assert.NotNil(t, resp.Data[0].IbovPct)
	assert.Empty(t, hook.AllEntries(), "every upstream must have met the others")
}

func TestHistorySlowBenchmarkTimesOut(t *testing.T) {
	quotes, rates := healthyProviders()
	quotes.hook = func(ctx context.Context, symbol string) error {
		if symbol != "IFIX.SA" {
			return nil
		}
		<-ctx.Done()
		return ctx.Err()
	}
	svc, _ := newTestService(quotes, rates)
	svc.Timeout = 20 * time.Millisecond

	resp, err := svc.History(context.Background(), "PETR4.SA", "1mo")
	require.NoError(t, err)
	for _, row := range resp.Data {
		assert.Nil(t, row.IfixPct)
		assert.NotNil(t, row.IbovPct)
	}
}

func TestHistoryIgnoresCallerCancellation(t *testing.T) {
	quotes, rates := healthyProviders()
	quotes.hook = func(ctx context.Context, _ string) error { return ctx.Err() }
	svc, _ := newTestService(quotes, rates)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp, err := svc.History(ctx, "PETR4.SA", "1mo")
	require.NoError(t, err)
	assert.NotNil(t, resp.Data[0].IbovPct)
}

func TestLookbackWindow(t *testing.T) {
	today := date.New(2024, 5, 15)
	testCases := []struct {
		lookback Lookback
		from     date.Date
	}{
		{Lookback1D, date.New(2024, 5, 14)},
		{Lookback1M, date.New(2024, 4, 15)},
		{Lookback1Y, date.New(2023, 5, 15)},
		{LookbackYTD, date.New(2024, 1, 1)},
		{LookbackMax, date.New(2014, 5, 15)},
	}
	for _, tc := range testCases {
		t.Run(string(tc.lookback), func(t *testing.T) {
			w := tc.lookback.Window(today)
			assert.Equal(t, tc.from, w.From)
			assert.Equal(t, today, w.To)
		})
	}
}

func TestParseTicker(t *testing.T) {
	for in, want := range map[string]string{
		"petr4":      "PETR4",
		"HGLG11":     "HGLG11",
		"^bvsp":      "^BVSP",
		"BVSP.INDX":  "BVSP.INDX",
		" vale3.sa ": "VALE3.SA",
	} {
		got, err := ParseTicker(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"", "PE TR4", "../etc", "^^BVSP", "PETR4?x=1"} {
		_, err := ParseTicker(in)
		assert.ErrorIs(t, err, ErrInvalidInput, in)
	}
}

func TestPrefetch(t *testing.T) {
	quotes, rates := healthyProviders()
	svc, _ := newTestService(quotes, rates)

	require.NoError(t, svc.Prefetch(context.Background(), Lookback1M))
	assert.ElementsMatch(t, []string{"^BVSP", "IFIX.SA"}, quotes.calls)
	require.Len(t, rates.windows, 2)
	assert.Equal(t, date.NewRange(monday.Add(4).AddMonths(-1), monday.Add(4)), rates.windows[0])
}

func TestPrefetchJoinsFailures(t *testing.T) {
	quotes, rates := healthyProviders()
	quotes.errs = map[string]error{"^BVSP": errors.New("yahoo down")}
	rates.errs = map[string]error{DefaultIPCASeries: errors.New("sgs down")}
	svc, _ := newTestService(quotes, rates)

	err := svc.Prefetch(context.Background(), Lookback1Y)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yahoo down")
	assert.Contains(t, err.Error(), "sgs down")
	assert.Len(t, quotes.calls, 2, "one failure does not stop the others")
}
