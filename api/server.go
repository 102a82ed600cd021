// Package api provides the HTTP REST API server for stocksense.
//
// It exposes the news, stocks and sentiment pipelines and the aggregated
// run, plus health and Prometheus metrics endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/seenimoa/stocksense/internal/aggregate"
	"github.com/seenimoa/stocksense/internal/config"
	"github.com/seenimoa/stocksense/internal/logger"
	"github.com/seenimoa/stocksense/internal/pipeline"
	"github.com/seenimoa/stocksense/pkg/models"
)

// Backend runs the pipelines behind the API. *aggregate.Aggregator
// satisfies it.
type Backend interface {
	SearchNews(ctx context.Context, query string, cfg pipeline.Config) ([]models.Document, error)
	LookupStocks(ctx context.Context, symbols string, cfg pipeline.Config) (models.StockRecords, error)
	Score(ctx context.Context, text string, cfg pipeline.Config) (models.SentimentResult, error)
	Run(ctx context.Context, req aggregate.Request) (*aggregate.Result, error)
}

var _ Backend = (*aggregate.Aggregator)(nil)

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     config.APIConfig
	backend Backend
	version string
	started time.Time
	log     *logrus.Entry
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg config.APIConfig, backend Backend, version string) *Server {
	s := &Server{
		cfg:     cfg,
		backend: backend,
		version: version,
		started: time.Now(),
		log:     logger.For("api"),
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server and shuts it down gracefully on
// SIGINT/SIGTERM or when ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	s.log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(180 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.CORSOrigins) > 0 {
		origins = s.cfg.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/news", s.handleNews)
		r.Get("/stocks/{symbols}", s.handleStocks)
		r.Get("/sentiment", s.handleSentimentQuery)
		r.Post("/sentiment", s.handleSentiment)
		r.Post("/run", s.handleRun)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"` // pipeline error kind, when known
}

// Options are the per-call pipeline options an API caller may set. URLs,
// params, headers, request bodies, feeds and keys come from server
// configuration only, since they are rendered with the server's API keys.
type Options struct {
	Source      string `json:"source,omitempty"`
	Request     string `json:"request,omitempty"`
	Normalize   string `json:"normalize,omitempty"`
	Filter      string `json:"filter,omitempty"`
	Body        string `json:"body,omitempty"`
	Text        string `json:"text,omitempty"`
	Google      *bool  `json:"google,omitempty"`
	Exclude     string `json:"exclude,omitempty"`
	Selector    string `json:"selector,omitempty"`
	StartDate   string `json:"startdate,omitempty"`
	EndDate     string `json:"enddate,omitempty"`
	Concurrency int    `json:"concurrency,omitempty"`
}

// Config converts o into a pipeline config.
func (o Options) Config() pipeline.Config {
	return pipeline.Config{
		Source:      o.Source,
		Request:     o.Request,
		Normalize:   o.Normalize,
		Filter:      o.Filter,
		Body:        o.Body,
		Text:        o.Text,
		Google:      o.Google,
		Exclude:     o.Exclude,
		Selector:    o.Selector,
		StartDate:   o.StartDate,
		EndDate:     o.EndDate,
		Concurrency: o.Concurrency,
	}
}

// SentimentRequest is the body for POST /api/v1/sentiment.
type SentimentRequest struct {
	Text   string  `json:"text"`
	Config Options `json:"config"`
}

// RunRequest is the body for POST /api/v1/run.
type RunRequest struct {
	Topic     string  `json:"topic"`
	Symbols   string  `json:"symbols,omitempty"`
	News      Options `json:"news"`
	Stocks    Options `json:"stocks"`
	Sentiment Options `json:"sentiment"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":  "ok",
			"version": s.version,
			"uptime":  time.Since(s.started).Round(time.Second).String(),
			"time":    time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// handleNews serves GET /api/v1/news?q=apple&source=guardian.
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	cfg, err := configFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	docs, err := s.backend.SearchNews(r.Context(), q, cfg)
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: docs})
}

// handleStocks serves GET /api/v1/stocks/AAPL,MSFT?startdate=2026-09-01.
func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	symbols := chi.URLParam(r, "symbols")
	cfg, err := configFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	recs, err := s.backend.LookupStocks(r.Context(), symbols, cfg)
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: recs})
}

// handleSentimentQuery serves GET /api/v1/sentiment?q=text-or-url.
func (s *Server) handleSentimentQuery(w http.ResponseWriter, r *http.Request) {
	cfg, err := configFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.score(w, r, r.URL.Query().Get("q"), cfg)
}

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	var req SentimentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validOptions(req.Config); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.score(w, r, req.Text, req.Config.Config())
}

func (s *Server) score(w http.ResponseWriter, r *http.Request, text string, cfg pipeline.Config) {
	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	res, err := s.backend.Score(r.Context(), text, cfg)
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}
	for _, o := range []Options{req.News, req.Stocks, req.Sentiment} {
		if err := validOptions(o); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	res, err := s.backend.Run(r.Context(), aggregate.Request{
		Topic:     req.Topic,
		Symbols:   req.Symbols,
		News:      req.News.Config(),
		Stocks:    req.Stocks.Config(),
		Sentiment: req.Sentiment.Config(),
	})
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

// ============================================================
// Helpers
// ============================================================

// configFromQuery reads per-call pipeline options from query parameters.
func configFromQuery(r *http.Request) (pipeline.Config, error) {
	v := r.URL.Query()
	o := Options{
		Source:    v.Get("source"),
		Request:   v.Get("request"),
		Normalize: v.Get("normalize"),
		Filter:    v.Get("filter"),
		Body:      v.Get("body"),
		Text:      v.Get("text"),
		Exclude:   v.Get("exclude"),
		Selector:  v.Get("selector"),
		StartDate: v.Get("startdate"),
		EndDate:   v.Get("enddate"),
	}
	if g := v.Get("google"); g != "" {
		b, err := strconv.ParseBool(g)
		if err != nil {
			return pipeline.Config{}, errors.New("google must be a boolean")
		}
		o.Google = pipeline.Bool(b)
	}
	if c := v.Get("concurrency"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil || n < 1 {
			return pipeline.Config{}, errors.New("concurrency must be a positive integer")
		}
		o.Concurrency = n
	}
	return o.Config(), nil
}

func validOptions(o Options) error {
	if o.Concurrency < 0 {
		return errors.New("concurrency must be a positive integer")
	}
	return nil
}

// statusFor maps a pipeline error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case pipeline.IsKind(err, pipeline.KindConfiguration):
		return http.StatusBadRequest
	case pipeline.IsKind(err, pipeline.KindShape), pipeline.IsKind(err, pipeline.KindTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	resp := APIResponse{Success: false, Error: err.Error()}
	var pe *pipeline.Error
	if errors.As(err, &pe) {
		resp.Kind = string(pe.Kind)
	}
	status := statusFor(err)
	s.log.WithFields(logrus.Fields{
		"path":       r.URL.Path,
		"status":     status,
		"request_id": middleware.GetReqID(r.Context()),
	}).WithError(err).Warn("request failed")
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.For("api").WithError(err).Error("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
