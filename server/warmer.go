package server

import (
	"context"
	"time"

	"github.com/brcarteira/carteira"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultWarmLookbacks are the ranges prefetched by a Warmer.
var DefaultWarmLookbacks = []carteira.Lookback{carteira.Lookback1D, carteira.Lookback1M, carteira.Lookback1Y}

// Prefetcher primes caches for a lookback. *carteira.Service implements it.
type Prefetcher interface {
	Prefetch(ctx context.Context, lookback carteira.Lookback) error
}

// Warmer periodically prefetches the series shared by every request:
// benchmarks and rates.
type Warmer struct {
	Prefetcher Prefetcher
	Lookbacks  []carteira.Lookback
	Timeout    time.Duration
	Logger     logrus.FieldLogger

	cron *cron.Cron
}

// NewWarmer returns a Warmer for the default lookbacks.
func NewWarmer(p Prefetcher, logger logrus.FieldLogger) *Warmer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Warmer{Prefetcher: p, Lookbacks: DefaultWarmLookbacks, Timeout: time.Minute, Logger: logger}
}

// Warm prefetches every lookback once.
func (w *Warmer) Warm(ctx context.Context) {
	for _, l := range w.Lookbacks {
		callCtx, cancel := context.WithTimeout(ctx, w.Timeout)
		err := w.Prefetcher.Prefetch(callCtx, l)
		cancel()
		log := w.Logger.WithField("range", l)
		if err != nil {
			log.WithError(err).Warn("warm-up incomplete")
			continue
		}
		log.Debug("warm-up done")
	}
}

// Start schedules Warm on spec, a standard five field cron expression.
func (w *Warmer) Start(spec string) error {
	w.cron = cron.New()
	if _, err := w.cron.AddFunc(spec, func() { w.Warm(context.Background()) }); err != nil {
		return err
	}
	w.cron.Start()
	w.Logger.WithField("schedule", spec).Info("warmer started")
	return nil
}

// Stop stops the schedule and waits for a running warm-up to complete.
func (w *Warmer) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
	w.Logger.Info("warmer stopped")
}
