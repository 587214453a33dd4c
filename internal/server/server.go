// Package server exposes the partitioned feed over HTTP for the web client.
//
// Routes:
//   - GET /api/feed   two-column layout with its balance score
//   - GET /api/items  the recency-ordered feed
//   - GET /healthz    liveness
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gauthierbraillon/duofeed/internal/aggregator"
	"github.com/gauthierbraillon/duofeed/internal/feed"
	"github.com/gauthierbraillon/duofeed/internal/partition"
)

const shutdownTimeout = 5 * time.Second

// Source supplies the items of one poll cycle.
type Source interface {
	Items(ctx context.Context) ([]feed.Item, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]feed.Item, error)

// Items calls f.
func (f SourceFunc) Items(ctx context.Context) ([]feed.Item, error) {
	return f(ctx)
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the origins allowed to call the API from a browser.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = slices.Clone(origins)
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server serves feed layouts computed from a Source.
type Server struct {
	source      Source
	partitioner *partition.Partitioner
	origins     []string
	logger      *slog.Logger
}

// New creates a Server that lays out items from source with p.
func New(source Source, p *partition.Partitioner, opts ...Option) *Server {
	s := &Server{
		source:      source,
		partitioner: p,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler with CORS and request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/feed", s.handleFeed)
	mux.HandleFunc("GET /api/items", s.handleItems)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return s.logRequests(s.cors(mux))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("feed backend listening", "addr", addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	opts, err := parseFeedOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	layout := s.partitioner.SelectBest
	if name := r.URL.Query().Get("strategy"); name != "" {
		layout, err = s.partitioner.Strategy(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	agg, ok := s.collect(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, layout(agg.GetFeed(opts)))
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	opts, err := parseFeedOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	agg, ok := s.collect(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, feed.Data{FeedItems: agg.GetFeed(opts)})
}

func (s *Server) collect(w http.ResponseWriter, r *http.Request) (*aggregator.Aggregator, bool) {
	items, err := s.source.Items(r.Context())
	if err != nil {
		s.logger.Error("feed source failed", "error", err)
		writeError(w, http.StatusBadGateway, fmt.Errorf("failed to load feed: %w", err))
		return nil, false
	}

	agg := aggregator.New(s.partitioner)
	agg.AddItems(items)
	return agg, true
}

func parseFeedOptions(r *http.Request) (aggregator.FeedOptions, error) {
	var opts aggregator.FeedOptions
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("invalid limit %q: must be a non-negative integer", v)
		}
		opts.Limit = n
	}

	for _, raw := range q["type"] {
		for _, name := range strings.Split(raw, ",") {
			typ, err := feed.ParseType(strings.TrimSpace(name))
			if err != nil {
				return opts, err
			}
			opts.Types = append(opts.Types, typ)
		}
	}
	return opts, nil
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && slices.Contains(s.origins, origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "*")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
