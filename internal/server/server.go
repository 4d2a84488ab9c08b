// Package server exposes check cycles over HTTP for external cron triggers.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"nyurban_tracker/internal/logging"
	"nyurban_tracker/internal/tracker"
)

// Options configures the HTTP server.
type Options struct {
	Addr string
	// Secret, when set, must match the X-Webhook-Secret header or the secret
	// query parameter of /check.
	Secret string
	// RatePerMinute limits /check requests. Zero disables the limit.
	RatePerMinute int
	CheckTimeout  time.Duration
}

// Server serves /health, /check and /metrics.
type Server struct {
	httpServer *http.Server
	cycle      tracker.Cycle
	opts       Options
	limiter    *rate.Limiter
	running    sync.Mutex
	log        *slog.Logger
}

// New creates a Server running cycle on every authorized /check request.
func New(cycle tracker.Cycle, opts Options, log *slog.Logger) *Server {
	s := &Server{cycle: cycle, opts: opts, log: log}
	if opts.RatePerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), opts.RatePerMinute)
	}
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      opts.CheckTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /check", s.handleCheck)
	mux.HandleFunc("POST /check", s.handleCheck)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("starting http server", "addr", s.opts.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type checkResponse struct {
	Status     string `json:"status"`
	ReturnCode int    `json:"returncode"`
	Output     string `json:"output"`
}

type cycleOutcome struct {
	err error
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.log.Warn("unauthorized check request", "remote_addr", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}
	if !s.running.TryLock() {
		writeError(w, http.StatusConflict, "Check already running")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.CheckTimeout)
	defer cancel()

	var out syncBuffer
	log := logging.Capture(s.log, &out, slog.LevelInfo)
	ctx = logging.WithLogger(ctx, log)

	done := make(chan cycleOutcome, 1)
	go func() {
		defer s.running.Unlock()
		defer func() {
			if p := recover(); p != nil {
				log.Error("check cycle panicked", "panic", p)
				done <- cycleOutcome{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		_, err := s.cycle.Run(ctx)
		done <- cycleOutcome{err: err}
	}()

	var res cycleOutcome
	select {
	case res = <-done:
	case <-ctx.Done():
		res = cycleOutcome{err: ctx.Err()}
	}

	if errors.Is(res.err, context.DeadlineExceeded) {
		s.log.Error("check timed out", "timeout", s.opts.CheckTimeout)
		writeError(w, http.StatusInternalServerError, "Check timed out")
		return
	}

	resp := checkResponse{Status: "success", Output: out.String()}
	status := http.StatusOK
	if res.err != nil {
		resp.Status = "error"
		resp.ReturnCode = 1
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.opts.Secret == "" {
		return true
	}
	provided := r.Header.Get("X-Webhook-Secret")
	if provided == "" {
		provided = r.URL.Query().Get("secret")
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(s.opts.Secret)) == 1
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// syncBuffer is a bytes.Buffer safe for a cycle that outlives its request.
type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
