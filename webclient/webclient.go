// Package webclient contains the http plumbing shared by upstream providers:
// a JSON GET helper, a disk cache expiring daily and request pacing.
package webclient

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"
	"time"

	"github.com/brcarteira/carteira/date"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is sent when a request has none. Yahoo rejects the Go default.
const DefaultUserAgent = "Mozilla/5.0"

// Options configures NewClient.
type Options struct {
	// CacheDir enables the daily disk cache when not empty.
	CacheDir string
	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	UserAgent         string
	Logger            logrus.FieldLogger
	// Today keys the disk cache. Defaults to date.Today.
	Today func() date.Date
}

// NewClient returns an http.Client with the transports selected by opts.
//
// Requests go through the cache first, so cache hits are not paced.
func NewClient(opts Options) *http.Client {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	var transport http.RoundTripper = &userAgent{base: http.DefaultTransport, ua: ua}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		transport = &paced{base: transport, limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)}
	}
	if opts.CacheDir != "" {
		today := opts.Today
		if today == nil {
			today = date.Today
		}
		transport = &diskCache{base: transport, dir: opts.CacheDir, today: today, log: log}
	}
	return &http.Client{Transport: transport, Timeout: opts.Timeout}
}

type userAgent struct {
	base http.RoundTripper
	ua   string
}

func (t *userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.ua)
	return t.base.RoundTrip(req)
}

// paced waits for the limiter before each request.
type paced struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *paced) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return t.base.RoundTrip(req)
}

// diskCache implements a simple disk cache for HTTP responses
type diskCache struct {
	base  http.RoundTripper
	dir   string
	today func() date.Date
	log   logrus.FieldLogger
}

// RoundTrip implements the http.RoundTripper interface. It checks for a cached
// response on disk first. If a fresh cached response is not found, it proceeds
// with the actual HTTP request and caches the new response if it's successful.
func (c *diskCache) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	if !cacheable(req) {
		return c.base.RoundTrip(req)
	}
	// the key embeds the day, so entries expire daily.
	key := fmt.Sprintf("%s %s %s", c.today(), req.Method, req.URL.String())
	key = fmt.Sprintf("%x", sha1.Sum([]byte(key)))

	cachedResp, err := c.get(key, req)
	if err == nil { // Cache hit
		return cachedResp, nil
	}

	resp, err = c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{"method": req.Method, "host": req.URL.Host, "path": req.URL.Path}).Debug(resp.Status)
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	// otherwise attempt to store it in cache

	if err := c.put(key, resp); err != nil {
		c.log.WithError(err).Warn("cache write failed (ignored)")
	}
	return resp, nil
}

type noCacheKey struct{}

// WithoutCache returns a context whose requests bypass the disk cache. Use it
// for data that changes within the day.
func WithoutCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, noCacheKey{}, true)
}

func cacheable(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	skip, _ := req.Context().Value(noCacheKey{}).(bool)
	return !skip
}

// get retrieves a cached response from disk
func (c *diskCache) get(key string, req *http.Request) (resp *http.Response, err error) {
	content, err := os.ReadFile(filepath.Join(c.dir, key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewBuffer(content)), req)
}

// put stores a response to disk cache
func (c *diskCache) put(key string, resp *http.Response) (err error) {
	// DumpResponse reads the body and replaces it with an in-memory copy.
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, key), content, 0o644)
}

// GetJSON performs an HTTP GET request to addr and unmarshals the JSON
// response body into data.
func GetJSON(ctx context.Context, client *http.Client, addr string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Host: req.URL.Host, Path: req.URL.Path, Code: resp.StatusCode, Status: resp.Status}
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return err
	}
	return json.Unmarshal(buf.Bytes(), data)
}

// StatusError is returned by GetJSON for non-200 responses.
type StatusError struct {
	Host, Path string
	Code       int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cannot http GET %v%v: %v", e.Host, e.Path, e.Status)
}
