// Package server exposes the history service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/brcarteira/carteira"
	"github.com/sirupsen/logrus"
)

// Historian answers history requests. *carteira.Service implements it.
type Historian interface {
	History(ctx context.Context, ticker, rng string) (*carteira.HistoryResponse, error)
}

// Pinger reports whether a dependency answers. *cache.RedisStore implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type check struct {
	name string
	p    Pinger
}

// Server serves the JSON API.
type Server struct {
	history Historian
	log     logrus.FieldLogger
	mux     *http.ServeMux
	checks  []check
}

// New returns a Server answering with history.
func New(history Historian, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{history: history, log: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// Check adds p to the dependencies probed by /healthz.
//
// Dependencies are optional: a failing one marks the service degraded but
// keeps it healthy, since requests are still answered without it.
func (s *Server) Check(name string, p Pinger) {
	s.checks = append(s.checks, check{name: name, p: p})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.log.WithFields(logrus.Fields{
		"method":   r.Method,
		"path":     r.URL.Path,
		"status":   rec.status,
		"duration": time.Since(start),
	}).Info("request")
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.WithField("addr", addr).Info("listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := s.history.History(r.Context(), q.Get("ticker"), q.Get("range"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var failures []string
	for _, c := range s.checks {
		if err := c.p.Ping(ctx); err != nil {
			s.log.WithField("dependency", c.name).WithError(err).Warn("health check failed")
			failures = append(failures, fmt.Sprintf("%s: %v\n", c.name, err))
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if len(failures) == 0 {
		w.Write([]byte("ok\n"))
		return
	}
	w.Write([]byte("degraded\n" + strings.Join(failures, "")))
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps service errors to status codes. Only invalid input is
// reported verbatim.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, carteira.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, carteira.ErrAssetNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: carteira.ErrAssetNotFound.Error()})
	default:
		s.log.WithError(err).Error("history failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: carteira.ErrInternal.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
