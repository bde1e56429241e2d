package carteira

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brcarteira/carteira/date"
	"github.com/sirupsen/logrus"
)

// Default upstream identifiers.
const (
	DefaultIbovSymbol = "^BVSP"
	DefaultIfixSymbol = "IFIX.SA"
	DefaultCDISeries  = "12"  // SGS: CDI, % per day
	DefaultIPCASeries = "433" // SGS: IPCA, % per month
)

// DefaultTimeout bounds every upstream call.
const DefaultTimeout = 15 * time.Second

// Service answers history requests by fetching every series concurrently and
// reconciling them.
//
// A Service holds no mutable state and can serve concurrent requests.
type Service struct {
	Quotes QuoteProvider
	Rates  RateProvider

	IbovSymbol string
	IfixSymbol string
	CDISeries  string
	IPCASeries string

	// Timeout bounds each upstream call independently.
	Timeout time.Duration
	Options Options
	Logger  logrus.FieldLogger

	// Today returns the last day of the rate window. Defaults to date.Today.
	Today func() date.Date
}

// NewService returns a Service with the default benchmarks, series and fallback rates.
func NewService(quotes QuoteProvider, rates RateProvider, logger logrus.FieldLogger) *Service {
	return &Service{
		Quotes:     quotes,
		Rates:      rates,
		IbovSymbol: DefaultIbovSymbol,
		IfixSymbol: DefaultIfixSymbol,
		CDISeries:  DefaultCDISeries,
		IPCASeries: DefaultIPCASeries,
		Timeout:    DefaultTimeout,
		Options:    DefaultOptions,
		Logger:     logger,
	}
}

func (s *Service) logger() logrus.FieldLogger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

func (s *Service) today() date.Date {
	if s.Today == nil {
		return date.Today()
	}
	return s.Today()
}

// History returns the reconciled history of ticker over rng.
//
// It fails with ErrInvalidInput before any upstream call when ticker or rng is
// malformed, with ErrAssetNotFound when the asset has no usable price, and with
// ErrInternal when the reconciliation itself fails. Unavailable benchmarks and
// rate series are logged and absorbed.
func (s *Service) History(ctx context.Context, ticker, rng string) (resp *HistoryResponse, err error) {
	symbol, err := ParseTicker(ticker)
	if err != nil {
		return nil, err
	}
	lookback, err := ParseLookback(rng)
	if err != nil {
		return nil, err
	}
	log := s.logger().WithFields(logrus.Fields{"symbol": symbol, "range": lookback})

	in, err := s.fetch(ctx, log, symbol, lookback)
	if err != nil {
		return nil, err
	}
	if in.Asset.ValidLen() == 0 {
		return nil, fmt.Errorf("%w: no price for %s over %s", ErrAssetNotFound, symbol, lookback)
	}

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("reconciliation panicked")
			resp, err = nil, ErrInternal
		}
	}()
	data, err := Reconcile(in, s.Options)
	switch {
	case errors.Is(err, ErrAssetNotFound):
		return nil, fmt.Errorf("%w: no price for %s over %s", ErrAssetNotFound, symbol, lookback)
	case err != nil:
		log.WithError(err).Error("reconciliation failed")
		return nil, ErrInternal
	}
	log.WithField("rows", len(data)).Debug("history reconciled")
	return &HistoryResponse{Ticker: ticker, Range: rng, Data: data}, nil
}

// fetch issues the five upstream reads concurrently and waits for all of them.
//
// Calls are detached from ctx cancellation: each one runs until it completes
// or its own timeout expires. A panicking provider degrades its series, and
// fails the request with ErrInternal when it serves the asset.
func (s *Service) fetch(ctx context.Context, log logrus.FieldLogger, symbol string, lookback Lookback) (Inputs, error) {
	ctx = context.WithoutCancel(ctx)
	window := lookback.Window(s.today())

	var (
		in          Inputs
		wg          sync.WaitGroup
		assetPanics bool
	)
	panicked := func(r any, channel, upstream string) bool {
		if r == nil {
			return false
		}
		log.WithFields(logrus.Fields{"series": channel, "upstream": upstream, "panic": r}).Error("upstream panicked")
		return true
	}
	quote := func(dst **RawSeries, channel, sym string) {
		defer wg.Done()
		defer func() {
			if panicked(recover(), channel, sym) {
				*dst = nil
				if channel == "asset" {
					assetPanics = true
				}
			}
		}()
		callCtx, cancel := context.WithTimeout(ctx, s.timeout())
		defer cancel()
		series, err := s.Quotes.QuoteHistory(callCtx, sym, lookback)
		if err != nil {
			log.WithFields(logrus.Fields{"series": channel, "upstream": sym}).WithError(err).Warn("upstream degraded")
			return
		}
		*dst = series
	}
	rate := func(dst *RateMap, channel, id string) {
		defer wg.Done()
		defer func() {
			if panicked(recover(), channel, id) {
				*dst = nil
			}
		}()
		callCtx, cancel := context.WithTimeout(ctx, s.timeout())
		defer cancel()
		rates, err := s.Rates.RateSeries(callCtx, id, window)
		if err != nil || rates.Empty() {
			log.WithFields(logrus.Fields{"series": channel, "upstream": id}).WithError(err).Warn("upstream degraded, using fallback rate")
			return
		}
		*dst = rates
	}

	wg.Add(5)
	go quote(&in.Asset, "asset", symbol)
	go quote(&in.Ibov, "ibov", s.IbovSymbol)
	go quote(&in.Ifix, "ifix", s.IfixSymbol)
	go rate(&in.CDI, "cdi", s.CDISeries)
	go rate(&in.IPCA, "ipca", s.IPCASeries)
	wg.Wait()
	if assetPanics {
		return in, ErrInternal
	}
	return in, nil
}

func (s *Service) timeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

// Prefetch reads the benchmark and rate series of lookback, so that caching
// providers hold them before requests need them. Failures are joined.
func (s *Service) Prefetch(ctx context.Context, lookback Lookback) error {
	window := lookback.Window(s.today())
	var errs error
	for _, sym := range []string{s.IbovSymbol, s.IfixSymbol} {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout())
		_, err := s.Quotes.QuoteHistory(callCtx, sym, lookback)
		cancel()
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("prefetch %s %s: %w", sym, lookback, err))
		}
	}
	for _, id := range []string{s.CDISeries, s.IPCASeries} {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout())
		_, err := s.Rates.RateSeries(callCtx, id, window)
		cancel()
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("prefetch series %s %s: %w", id, lookback, err))
		}
	}
	return errs
}
