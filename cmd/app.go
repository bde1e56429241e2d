// Package cmd implements the carteira command line.
package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/brcarteira/carteira"
	"github.com/brcarteira/carteira/bcb"
	"github.com/brcarteira/carteira/cache"
	"github.com/brcarteira/carteira/config"
	"github.com/brcarteira/carteira/eodhd"
	"github.com/brcarteira/carteira/webclient"
	"github.com/brcarteira/carteira/yahoo"
	"github.com/google/subcommands"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "carteira.yaml", "Path to the configuration file (YAML). A missing file selects the defaults.")

// Commands returns every carteira subcommand.
func Commands() []subcommands.Command {
	return []subcommands.Command{
		&historyCmd{},
		&ratesCmd{},
		&serveCmd{},
		&topicCmd{},
	}
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, cmd := range Commands() {
		c.Register(cmd, "")
	}
}

// app holds the collaborators built from the configuration.
type app struct {
	cfg     *config.Config
	log     *logrus.Logger
	quotes  carteira.QuoteProvider
	rates   carteira.RateProvider
	service *carteira.Service
	redis   *redis.Client
	store   *cache.RedisStore
}

// loadApp reads the configuration and wires providers, caches and service.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %q: %w", *configFile, err)
	}
	a := &app{cfg: cfg, log: cfg.NewLogger()}

	client := webclient.NewClient(webclient.Options{
		CacheDir:          cfg.Upstream.CacheDir,
		RequestsPerSecond: cfg.Upstream.RequestsPerSecond,
		Burst:             cfg.Upstream.Burst,
		UserAgent:         cfg.Upstream.UserAgent,
		Logger:            a.log,
	})

	switch cfg.Quotes.Provider {
	case config.ProviderEODHD:
		a.quotes = eodhd.New(cfg.Quotes.EODHDURL, cfg.Quotes.EODHDAPIKey, client, a.log)
	default:
		a.quotes = yahoo.New(cfg.Quotes.YahooURL, client, a.log)
	}
	a.rates = bcb.New(cfg.Rates.BCBURL, client, a.log)

	if cfg.Redis.Addr != "" {
		rdb, err := cache.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			// the shared cache is an optimisation.
			a.log.WithError(err).Warn("redis unavailable, running without shared cache")
		} else {
			a.redis = rdb
			a.store = cache.NewRedisStore(rdb, "carteira:")
			a.quotes = &cache.Quotes{Next: a.quotes, Store: a.store, TTL: cfg.Redis.TTL, Logger: a.log}
			a.rates = &cache.Rates{Next: a.rates, Store: a.store, TTL: cfg.Redis.TTL, Logger: a.log}
		}
	}

	svc := carteira.NewService(a.quotes, a.rates, a.log)
	svc.IbovSymbol = cfg.Benchmarks.Ibov
	svc.IfixSymbol = cfg.Benchmarks.Ifix
	svc.CDISeries = cfg.Rates.CDI
	svc.IPCASeries = cfg.Rates.IPCA
	svc.Timeout = cfg.Upstream.Timeout
	svc.Options = carteira.Options{
		FallbackDailyRate:   cfg.Rates.FallbackDaily,
		FallbackMonthlyRate: cfg.Rates.FallbackMonthly,
	}
	a.service = svc
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
}
