// Package server provides the BrainScan HTTP interface: MRS uploads, parsed
// spectra, classifier training and prediction.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ChrisMcGann/brainscan/internal/logging"
	"github.com/ChrisMcGann/brainscan/pkg/analysis"
	"github.com/ChrisMcGann/brainscan/pkg/classify"
	"github.com/ChrisMcGann/brainscan/pkg/core"
)

//go:embed templates/*.html
var templateFS embed.FS

// Store is the persistence the server needs.
type Store interface {
	StoreScan(ctx context.Context, scan *core.Scan) error
	FetchScan(ctx context.Context, id string) (*core.Scan, error)
	FetchAllScans(ctx context.Context) ([]*core.Scan, error)
	StoreClassifier(ctx context.Context, rec *core.ClassifierRecord) error
	FetchClassifier(ctx context.Context, id string) (*core.ClassifierRecord, error)
	FetchAllClassifiers(ctx context.Context) ([]*core.ClassifierRecord, error)
}

// Config holds server settings
type Config struct {
	MaxUploadBytes  int64         // Multipart upload limit
	ShutdownTimeout time.Duration // Grace period for in-flight requests
	ClassifierType  classify.Kind // Default classifier type for training
	ClassifierK     int           // Default neighbour count for knn
}

// Server serves the BrainScan web interface.
type Server struct {
	store    Store
	analyzer *analysis.Analyzer
	cfg      Config
	logger   zerolog.Logger
	metrics  *metrics
	registry *prometheus.Registry
	tmpl     *template.Template
	handler  http.Handler
}

// New creates a server. Each server owns its own metrics registry.
func New(store Store, analyzer *analysis.Analyzer, cfg Config, logger zerolog.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.ClassifierType == "" {
		cfg.ClassifierType = classify.KindCentroid
	}

	reg := prometheus.NewRegistry()
	s := &Server{
		store:    store,
		analyzer: analyzer,
		cfg:      cfg,
		logger:   logging.Component(logger, "server"),
		metrics:  newMetrics(reg),
		registry: reg,
		tmpl:     tmpl,
	}
	s.handler = s.routes()

	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	s.handle(mux, "GET /{$}", "/", s.handleIndex)
	s.handle(mux, "GET /data_upload", "/data_upload", s.handleUploadForm)
	s.handle(mux, "POST /data_upload", "/data_upload", s.handleUpload)
	s.handle(mux, "GET /data_list", "/data_list", s.handleList)
	s.handle(mux, "GET /data_read", "/data_read", s.handleRead)
	s.handle(mux, "GET /test_parser", "/test_parser", s.handleTestParser)
	s.handle(mux, "GET /classifiers", "/classifiers", s.handleListClassifiers)
	s.handle(mux, "POST /classifiers", "/classifiers", s.handleTrain)
	s.handle(mux, "GET /classify", "/classify", s.handleClassify)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return mux
}

// handle registers h under pattern, wrapped with logging and metrics labelled by endpoint.
func (s *Server) handle(mux *http.ServeMux, pattern, endpoint string, h http.HandlerFunc) {
	mux.Handle(pattern, s.instrument(endpoint, h))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Serve accepts connections on l until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(l)
	}()

	s.logger.Info().Str("addr", l.Addr().String()).Msg("server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, l)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		s.metrics.requestCount.WithLabelValues(r.Method, endpoint, fmt.Sprint(rec.status)).Inc()
		s.metrics.requestDuration.WithLabelValues(r.Method, endpoint).Observe(elapsed.Seconds())

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", elapsed).
			Msg("request")
	})
}
