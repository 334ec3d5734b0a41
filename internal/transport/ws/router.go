package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/match"
)

const (
	maxSpecBytes       = 64 << 10
	defaultResultLimit = 20
	maxResultLimit     = 100
)

// ResultLister reads recorded match results, newest first.
type ResultLister interface {
	Recent(ctx context.Context, limit int) ([]match.Result, error)
}

// RouterOption mounts optional routes.
type RouterOption func(r chi.Router, logger *zap.Logger)

// WithResults mounts GET /results?limit=N backed by l.
func WithResults(l ResultLister) RouterOption {
	return func(r chi.Router, logger *zap.Logger) {
		r.Get("/results", listResults(l, logger))
	}
}

// NewRouter mounts the public routes:
//
//	POST /games   create a game from a match.GameSpec
//	GET  /healthz liveness
//	GET  /ws      websocket upgrade (?game=&player=)
func NewRouter(game Game, ws *Handler, logger *zap.Logger, opts ...RouterOption) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/games", createGame(game, logger))
	r.Get("/healthz", healthz)
	r.Method(http.MethodGet, "/ws", ws)
	for _, opt := range opts {
		opt(r, logger)
	}
	return r
}

func listResults(l ResultLister, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultResultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxResultLimit)
		}
		results, err := l.Recent(r.Context(), limit)
		if err != nil {
			logger.Error("listing match results", zap.Error(err))
			http.Error(w, "results unavailable", http.StatusInternalServerError)
			return
		}
		if results == nil {
			results = []match.Result{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(results)
	}
}

func createGame(game Game, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var spec match.GameSpec
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSpecBytes))
		if err := dec.Decode(&spec); err != nil {
			http.Error(w, "invalid game spec", http.StatusBadRequest)
			return
		}
		snap, err := game.CreateGame(spec)
		if err != nil {
			logger.Info("game rejected", zap.Error(err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(snap)
	}
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// HTTPService runs an http.Server as a lifecycle service.
type HTTPService struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewHTTPService creates an HTTPService serving handler on cfg's address.
//
// Precondition: handler and logger must be non-nil.
func NewHTTPService(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) *HTTPService {
	return &HTTPService{
		srv: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadTimeout,
		},
		logger: logger,
	}
}

// Start listens and serves until Stop is called.
func (s *HTTPService) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	// Shutdown does not wait for hijacked websocket connections; cancelling
	// their base context makes their read loops return.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.srv.RegisterOnShutdown(cancel)
	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }
	s.logger.Info("http listening", zap.String("addr", lis.Addr().String()))
	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *HTTPService) Stop(ctx context.Context) {
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
}
