// Package api exposes the journal service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	tj "github.com/etnz/tradejournal"
	"github.com/etnz/tradejournal/date"
	"github.com/etnz/tradejournal/logger"
	"github.com/etnz/tradejournal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Server serves the journal of a single user.
type Server struct {
	svc            *tj.Service
	userID         int64
	maxUploadBytes int64
	limiter        *rate.Limiter
	reports        *cache.Cache // computed reports, flushed on every write
	logger         *slog.Logger
}

// NewServer returns a server for the journal of userID.
func NewServer(svc *tj.Service, userID, maxUploadBytes int64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		svc:            svc,
		userID:         userID,
		maxUploadBytes: maxUploadBytes,
		limiter:        rate.NewLimiter(rate.Every(100*time.Millisecond), 30),
		reports:        cache.New(5*time.Minute, 10*time.Minute),
		logger:         logger,
	}
}

// Handler returns the routes of the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.contextualLogger)
	r.Use(metrics.Middleware)
	r.Use(s.rateLimit)

	r.Handle("/metrics", metrics.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Get("/accounts", s.listAccounts)
		r.Post("/accounts", s.createAccount)
		r.Route("/accounts/{account}", func(r chi.Router) {
			r.Post("/import", s.importFile)
			r.Get("/trades", s.listTrades)
			r.Post("/trades", s.addTrade)
			r.Delete("/trades", s.deleteAllTrades)
			r.Put("/trades/{id}", s.updateTrade)
			r.Delete("/trades/{id}", s.deleteTrade)
			r.Post("/dedupe", s.dedupe)
			r.Get("/positions", s.positions)
			r.Post("/recalculate", s.recalculate)
			r.Get("/spreads", s.spreads)
			r.Post("/spreads/detect", s.detectSpreads)
			r.Get("/summary", s.summary)
			r.Get("/dashboard", s.dashboard)
			r.Get("/holdings", s.holdings)
			r.Get("/dividends", s.dividends)
		})
	})
	return r
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			logger.FromContext(r.Context()).Warn("rate limit exceeded", "path", r.URL.Path)
			sendJSONError(w, r, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) contextualLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := s.logger.With("request_id", middleware.GetReqID(r.Context()), "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(logger.ToContext(r.Context(), l)))
	})
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func sendJSONError(w http.ResponseWriter, r *http.Request, message string, status int) {
	logger.FromContext(r.Context()).Warn("sending JSON error to client", "message", message, "status", status)
	sendJSON(w, status, map[string]string{"error": message})
}

// sendError maps service errors to HTTP statuses.
func sendError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tj.ErrAccountNotFound), errors.Is(err, tj.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, tj.ErrInvalid), errors.Is(err, tj.ErrUnknownFormat), errors.Is(err, tj.ErrEmptyFile):
		status = http.StatusBadRequest
	}
	sendJSONError(w, r, err.Error(), status)
}

// badRequest wraps a request parsing error.
type badRequest struct{ error }

func (e badRequest) Unwrap() error { return tj.ErrInvalid }

func pathInt(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, badRequest{fmt.Errorf("invalid %s %q", name, chi.URLParam(r, name))}
	}
	return v, nil
}

// queryRange reads the from and to query parameters, both optional.
func queryRange(r *http.Request) (date.Range, error) {
	var from, to date.Date
	for _, p := range []struct {
		name string
		d    *date.Date
	}{{"from", &from}, {"to", &to}} {
		v := r.URL.Query().Get(p.name)
		if v == "" {
			continue
		}
		d, err := date.Parse(v)
		if err != nil {
			return date.Range{}, badRequest{fmt.Errorf("invalid %s date %q", p.name, v)}
		}
		*p.d = d
	}
	if from.IsZero() && to.IsZero() {
		return date.Range{}, nil
	}
	return date.NewRange(from, to), nil
}

// scope reads the account and the range of a report request.
func scope(r *http.Request) (int64, date.Range, error) {
	account, err := pathInt(r, "account")
	if err != nil {
		return 0, date.Range{}, err
	}
	rg, err := queryRange(r)
	return account, rg, err
}

// cached returns the report under key, computing it when missing.
func (s *Server) cached(key string, compute func() (any, error)) (any, error) {
	if v, ok := s.reports.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return nil, err
	}
	s.reports.SetDefault(key, v)
	return v, nil
}
