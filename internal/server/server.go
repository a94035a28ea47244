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

	"github.com/hashicorp/go-hclog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/dshills/pyreview/internal/intake"
	"github.com/dshills/pyreview/internal/logging"
	"github.com/dshills/pyreview/internal/output"
	"github.com/dshills/pyreview/internal/review"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Reviewer runs the review pipeline for one submission.
type Reviewer interface {
	Run(ctx context.Context, sub intake.Submission) (*review.Report, error)
}

// Options configures a Server.
type Options struct {
	Addr            string
	MaxBytes        int
	ShutdownTimeout time.Duration
	ReportCapacity  int
	ReportTTL       time.Duration
	// Render configures the PDF engine and the review page.
	Render output.Options
	Logger hclog.Logger
	Now    func() time.Time
}

// Server is the HTTP gateway.
type Server struct {
	reviewer Reviewer
	store    *Store
	opts     Options
	logger   hclog.Logger
}

// New returns a Server that reviews submissions with reviewer.
func New(reviewer Reviewer, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = intake.DefaultMaxBytes
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	logger := logging.OrDiscard(opts.Logger)
	opts.Render.Interactive = true
	opts.Render.ReportsPath = "/reports"
	if opts.Render.Logger == nil {
		opts.Render.Logger = logger.Named("render")
	}
	return &Server{
		reviewer: reviewer,
		store:    NewStore(opts.ReportCapacity, opts.ReportTTL),
		opts:     opts,
		logger:   logger,
	}
}

// Store returns the report store.
func (s *Server) Store() *Store { return s.store }

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /review", s.handleReview)
	mux.HandleFunc("GET /reports/{id}/pdf", s.handlePDF)
	mux.HandleFunc("GET /reports/{name}", s.handleReport)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	var h http.Handler = mux
	h = withSecurityHeaders(h)
	h = withRecover(s.logger, h)
	h = withLogging(s.logger, h)
	return h
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", ln.Addr().String())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", s.opts.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
