package tooldiag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"
)

// ServerOptions configure the diagnostics HTTP surface.
type ServerOptions struct {
	// Addr controls the listen address used by ListenAndServe. Defaults to ":8710".
	Addr string
	// AllowedOrigins is passed to the CORS middleware. Defaults to ["*"].
	AllowedOrigins []string
	// RequestTimeout bounds each diagnostic request. Defaults to 30s.
	RequestTimeout time.Duration
	// Logger receives structured diagnostics.
	Logger *slog.Logger
}

func (o *ServerOptions) withDefaults() ServerOptions {
	if o == nil {
		o = &ServerOptions{}
	}
	opts := *o
	if opts.Addr == "" {
		opts.Addr = ":8710"
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}

// Server exposes read-only diagnostics over HTTP as JSON.
type Server struct {
	resolver Resolver
	opts     ServerOptions
	handler  http.Handler

	httpServerMu sync.Mutex
	httpServer   *http.Server
}

// NewServer builds the diagnostics surface over a resolver.
func NewServer(resolver Resolver, opts *ServerOptions) (*Server, error) {
	if resolver == nil {
		return nil, fmt.Errorf("tooldiag: resolver is required")
	}
	s := &Server{resolver: resolver, opts: opts.withDefaults()}
	s.handler = s.mountHandler()
	return s, nil
}

// Handler exposes the HTTP handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe runs an HTTP server until the provided context is cancelled
// or the server stops.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServerMu.Lock()
	if s.httpServer != nil {
		serv := s.httpServer
		s.httpServerMu.Unlock()
		return fmt.Errorf("tooldiag: server already running on %s", serv.Addr)
	}
	srv := &http.Server{Addr: s.opts.Addr, Handler: s.Handler()}
	s.httpServer = srv
	s.httpServerMu.Unlock()
	defer func() {
		s.httpServerMu.Lock()
		if s.httpServer == srv {
			s.httpServer = nil
		}
		s.httpServerMu.Unlock()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.RequestTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops the embedded HTTP server if it is running.
func (s *Server) Shutdown(ctx context.Context) error {
	s.httpServerMu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.httpServerMu.Unlock()
	if srv == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return srv.Shutdown(ctx)
}

func (s *Server) mountHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /services", s.handleServices)
	mux.HandleFunc("GET /services/{service}/health", s.handleServiceHealth)
	mux.HandleFunc("GET /services/{service}/diagnostics", s.handleServiceDiagnostics)
	mux.HandleFunc("GET /inventory", s.handleInventory)

	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	})
	return c.Handler(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	ids := s.resolver.Services()
	counts := s.resolver.Registry().ToolCountByService()
	services := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		services = append(services, map[string]any{
			"service": id,
			"tools":   counts[id],
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

func (s *Server) handleServiceHealth(w http.ResponseWriter, r *http.Request) {
	serviceID := r.PathValue("service")
	if !s.knownService(serviceID) {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown service %q", serviceID))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()
	s.writeJSON(w, http.StatusOK, s.resolver.ServiceHealth(ctx, serviceID))
}

func (s *Server) handleServiceDiagnostics(w http.ResponseWriter, r *http.Request) {
	serviceID := r.PathValue("service")
	if !s.knownService(serviceID) {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown service %q", serviceID))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()
	s.writeJSON(w, http.StatusOK, BuildReport(ctx, s.resolver, serviceID))
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"inventory": Inventory(s.resolver.Registry())})
}

func (s *Server) knownService(serviceID string) bool {
	for _, id := range s.resolver.Services() {
		if id == serviceID {
			return true
		}
	}
	return false
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.opts.Logger.Warn("encode response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	s.writeJSON(w, code, map[string]any{"error": message})
}
