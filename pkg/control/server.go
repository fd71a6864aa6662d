package control

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/meld/internal/errors"
	"github.com/vango-dev/meld/pkg/engine"
	"github.com/vango-dev/meld/pkg/snapshot"
)

// Config configures the control server.
type Config struct {
	// Gatherer serves /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer

	// Store backs the snapshot routes. Nil disables them.
	Store snapshot.Store

	// Timeout bounds each request's wait for the engine loop.
	Timeout time.Duration

	Logger *slog.Logger
}

// Option configures a Server.
type Option func(*Config)

// WithGatherer enables /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(c *Config) { c.Gatherer = g }
}

// WithStore enables the snapshot routes.
func WithStore(s snapshot.Store) Option {
	return func(c *Config) { c.Store = s }
}

// WithTimeout sets the per-request engine timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// Server is the HTTP control surface of one engine.
type Server struct {
	engine *engine.Engine
	config Config
	router chi.Router
	logger *slog.Logger
}

// New builds the control server for eng.
func New(eng *engine.Engine, opts ...Option) *Server {
	config := Config{Timeout: 5 * time.Second, Logger: slog.Default()}
	for _, opt := range opts {
		opt(&config)
	}
	s := &Server{
		engine: eng,
		config: config,
		logger: config.Logger.With("component", "control"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/components", func(r chi.Router) {
		r.Get("/", s.listComponents)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getComponent)
			r.Post("/events", s.triggerEvent)
			r.Post("/call", s.callMethod)
			r.Post("/restore", s.restore)
		})
	})
	r.Post("/snapshots", s.checkpoint)
	r.Post("/prune", s.prune)

	if s.config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control server starting", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type result[T any] struct {
	value T
	err   error
}

// onLoop runs fn on the engine loop within the request's deadline. The
// result travels over a channel so a loop that finishes after the deadline
// never writes to memory the handler still reads.
func onLoop[T any](s *Server, r *http.Request, fn func() (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.Timeout)
	defer cancel()

	ch := make(chan result[T], 1)
	var zero T
	if err := s.engine.Do(ctx, func() {
		v, err := fn()
		ch <- result[T]{value: v, err: err}
	}); err != nil {
		return zero, err
	}
	select {
	case res := <-ch:
		return res.value, res.err
	default:
		// fn panicked; the loop recovered it.
		return zero, errors.Newf(errors.CategorySync, "engine task did not complete")
	}
}

func (s *Server) listComponents(w http.ResponseWriter, r *http.Request) {
	infos, err := onLoop(s, r, func() ([]engine.Info, error) {
		return s.engine.Inspect(false), nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) prune(w http.ResponseWriter, r *http.Request) {
	ids, err := onLoop(s, r, func() ([]string, error) {
		return s.engine.Prune(), nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pruned": ids})
}

func (s *Server) getComponent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	withMarkup := r.URL.Query().Get("markup") != ""

	info, err := onLoop(s, r, func() (engine.Info, error) {
		return s.engine.InspectComponent(id, withMarkup)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// eventRequest is engine.EventSpec with presence detection for value.
type eventRequest struct {
	engine.EventSpec
	RawValue json.RawMessage `json:"value"`
}

func (s *Server) triggerEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, r, errors.New("M021").WithDetail("event body").Wrap(err))
		return
	}
	spec := req.EventSpec
	if len(req.RawValue) > 0 {
		if err := json.Unmarshal(req.RawValue, &spec.Value); err != nil {
			s.fail(w, r, errors.New("M021").WithDetail("event value").Wrap(err))
			return
		}
		spec.HasValue = true
	}

	prevented, err := onLoop(s, r, func() (bool, error) {
		return s.engine.TriggerEvent(id, spec)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"defaultPrevented": prevented})
}

type callRequest struct {
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

func (s *Server) callMethod(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Method == "" {
		s.fail(w, r, errors.New("M021").WithDetail("call body needs a method").Wrap(err))
		return
	}

	_, err := onLoop(s, r, func() (struct{}, error) {
		return struct{}{}, s.engine.Call(id, req.Method, req.Args...)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// checkpoint takes the records on the loop and saves them off it.
func (s *Server) checkpoint(w http.ResponseWriter, r *http.Request) {
	if s.config.Store == nil {
		http.Error(w, "snapshots disabled", http.StatusNotFound)
		return
	}
	records, err := onLoop(s, r, func() ([]*snapshot.Record, error) {
		return s.engine.Records(), nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if err := s.config.Store.Save(r.Context(), rec); err != nil {
			s.fail(w, r, err)
			return
		}
		ids = append(ids, rec.ID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": ids})
}

func (s *Server) restore(w http.ResponseWriter, r *http.Request) {
	if s.config.Store == nil {
		http.Error(w, "snapshots disabled", http.StatusNotFound)
		return
	}
	id := chi.URLParam(r, "id")
	rec, err := s.config.Store.Load(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rec == nil {
		http.Error(w, "no snapshot for "+id, http.StatusNotFound)
		return
	}
	_, err = onLoop(s, r, func() (struct{}, error) {
		return struct{}{}, s.engine.ApplyRecord(rec)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("control request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
	}
	writeJSON(w, status, map[string]string{
		"code":  errors.CodeOf(err),
		"error": err.Error(),
	})
}

func statusOf(err error) int {
	switch errors.CodeOf(err) {
	case "M031", "M032":
		return http.StatusNotFound
	case "M021":
		return http.StatusBadRequest
	case "M041":
		return http.StatusServiceUnavailable
	}
	if err == context.DeadlineExceeded || err == context.Canceled {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
