// Package httpapi exposes window listing, capture, coordinate mapping and
// automation over a local HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/1broseidon/dtop/internal/automation"
	"github.com/1broseidon/dtop/internal/capture"
	"github.com/1broseidon/dtop/internal/desktop"
	"github.com/1broseidon/dtop/internal/platform"
	"github.com/1broseidon/dtop/internal/requestlog"
)

// Lister enumerates windows.
type Lister interface {
	List(ctx context.Context) ([]platform.Window, error)
}

// Capturer screenshots a window.
type Capturer interface {
	Screenshot(ctx context.Context, id platform.WindowID) (capture.Shot, error)
}

// PointMapper maps screenshot coordinates onto the live window.
type PointMapper interface {
	Map(ctx context.Context, id platform.WindowID, xRel, yRel float64, orig desktop.Size, tolerance float64) (desktop.Point, error)
	Tolerance() float64
}

// Automator replays action batches.
type Automator interface {
	Run(ctx context.Context, id platform.WindowID, actions []automation.Action) (automation.Report, error)
}

// RequestLog persists and reads back request records.
type RequestLog interface {
	Record(e requestlog.Entry) error
	Access(method, path string) error
	Tail(n int) ([]json.RawMessage, error)
	AccessTail(n int) ([]string, error)
}

// Options wires the server's collaborators.
type Options struct {
	Windows    Lister
	Capture    Capturer
	Mapper     PointMapper
	Automation Automator
	// Requests may be nil to disable request logging.
	Requests  RequestLog
	StaticDir string
	Logger    *slog.Logger
}

// Server is the HTTP front end.
type Server struct {
	opts    Options
	logger  *slog.Logger
	started time.Time
	router  chi.Router
}

// New builds the router.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		opts:    opts,
		logger:  logger,
		started: time.Now(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	if s.opts.Requests != nil {
		r.Use(s.requestLogMiddleware)
	}

	r.Get("/", s.handleRoot)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/windows", s.handleListWindows)
		r.Get("/windows/{id}/screenshot", s.handleScreenshot)
		r.Post("/windows/{id}/map", s.handleMap)
		r.Post("/automate", s.handleAutomate)
		r.Get("/logs", s.handleLogs)
		r.Get("/requests_log", s.handleRequestsLog)
	})

	if s.opts.StaticDir != "" {
		fs := http.StripPrefix("/ui", http.FileServer(http.Dir(s.opts.StaticDir)))
		r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/ui/", http.StatusMovedPermanently)
		})
		r.Get("/ui/*", fs.ServeHTTP)
	}

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. ready, if non-nil, receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if ready != nil {
		ready(ln.Addr())
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Automation runs cannot be interrupted once focus moved; give them time.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
