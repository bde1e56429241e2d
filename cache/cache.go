// Package cache shares upstream answers between requests and processes.
//
// Quotes and Rates wrap a provider and keep its answers in a Store for a
// bounded time. Cache failures never fail a request: they are logged and the
// wrapped provider is called instead.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brcarteira/carteira"
	"github.com/brcarteira/carteira/date"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrMiss is returned by Store.Get when key is absent.
var ErrMiss = errors.New("cache miss")

// Store is a key/value store with expiration.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore is a Store backed by redis.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a Store writing keys under prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Dial connects to the redis server at addr and checks it answers.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return val, err
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}

// Ping checks the connection to the Redis server.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Quotes caches a carteira.QuoteProvider.
type Quotes struct {
	Next   carteira.QuoteProvider
	Store  Store
	TTL    time.Duration
	Logger logrus.FieldLogger
}

var _ carteira.QuoteProvider = (*Quotes)(nil)

func quoteKey(symbol string, lookback carteira.Lookback) string {
	return fmt.Sprintf("quotes:%s:%s", symbol, lookback)
}

// QuoteHistory implements carteira.QuoteProvider.
func (q *Quotes) QuoteHistory(ctx context.Context, symbol string, lookback carteira.Lookback) (*carteira.RawSeries, error) {
	key := quoteKey(symbol, lookback)
	log := logger(q.Logger).WithField("key", key)

	if raw, err := q.Store.Get(ctx, key); err == nil {
		var series carteira.RawSeries
		if err := json.Unmarshal(raw, &series); err == nil {
			log.Debug("cache hit")
			return &series, nil
		}
		log.WithError(err).Warn("corrupted cache entry (ignored)")
	} else if !errors.Is(err, ErrMiss) {
		log.WithError(err).Warn("cache read failed (ignored)")
	}

	series, err := q.Next.QuoteHistory(ctx, symbol, lookback)
	if err != nil {
		return nil, err
	}
	// a series without a price is not worth remembering.
	if series.ValidLen() > 0 {
		put(ctx, log, q.Store, key, series, q.TTL)
	}
	return series, nil
}

// Rates caches a carteira.RateProvider.
type Rates struct {
	Next   carteira.RateProvider
	Store  Store
	TTL    time.Duration
	Logger logrus.FieldLogger
}

var _ carteira.RateProvider = (*Rates)(nil)

func rateKey(id string, window date.Range) string {
	return fmt.Sprintf("rates:%s:%s", id, window.Identifier())
}

// point is the cached form of a RateMap entry. Dates cannot be json object keys.
type point struct {
	Date date.Date `json:"d"`
	Rate float64   `json:"r"`
}

// RateSeries implements carteira.RateProvider.
func (r *Rates) RateSeries(ctx context.Context, id string, window date.Range) (carteira.RateMap, error) {
	key := rateKey(id, window)
	log := logger(r.Logger).WithField("key", key)

	if raw, err := r.Store.Get(ctx, key); err == nil {
		var points []point
		if err := json.Unmarshal(raw, &points); err == nil {
			log.Debug("cache hit")
			rates := make(carteira.RateMap, len(points))
			for _, p := range points {
				rates[p.Date] = p.Rate
			}
			return rates, nil
		}
		log.WithError(err).Warn("corrupted cache entry (ignored)")
	} else if !errors.Is(err, ErrMiss) {
		log.WithError(err).Warn("cache read failed (ignored)")
	}

	rates, err := r.Next.RateSeries(ctx, id, window)
	if err != nil {
		return nil, err
	}
	if !rates.Empty() {
		points := make([]point, 0, len(rates))
		for d, v := range rates {
			points = append(points, point{Date: d, Rate: v})
		}
		put(ctx, log, r.Store, key, points, r.TTL)
	}
	return rates, nil
}

func put(ctx context.Context, log logrus.FieldLogger, store Store, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		log.WithError(err).Warn("cache encode failed (ignored)")
		return
	}
	if err := store.Set(ctx, key, raw, ttl); err != nil {
		log.WithError(err).Warn("cache write failed (ignored)")
	}
}

func logger(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return logrus.StandardLogger()
	}
	return l
}
