// Package api provides the HTTP server for the HotelRunner bridge.
//
// It exposes the public availability check, the secret-protected offer
// composer used by the assistant platform, and a few operational endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/flohan/hotelrunner/internal/availability"
	"github.com/flohan/hotelrunner/internal/config"
	"github.com/flohan/hotelrunner/internal/offer"
)

// RequestTimeout bounds every request end to end.
const RequestTimeout = 30 * time.Second

// AvailabilityService answers availability queries.
type AvailabilityService interface {
	GetAvailability(ctx context.Context, req availability.Request) (*availability.Response, error)
}

// OfferComposer prices offers.
type OfferComposer interface {
	Compose(ctx context.Context, req offer.Request) (offer.Offer, error)
}

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	avail  AvailabilityService
	offers OfferComposer
	logger *slog.Logger
	now    func() time.Time
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, avail AvailabilityService, offers OfferComposer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		avail:  avail,
		offers: offers,
		logger: logger.With("component", "api"),
		now:    time.Now,
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
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.Server.CORSOrigins) > 0 {
		origins = s.cfg.Server.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", "X-Tool-Secret"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Operational
	r.Get("/healthz", s.handleHealth)
	r.Get("/health", s.handleHealth)
	r.Get("/__routes", s.handleRoutes)

	// Public availability
	r.Post("/availability/check", s.handleCheckAvailability)
	r.Post("/retell/public/check_availability", s.handleCheckAvailability)
	r.Post("/hotelrunner/public/availability", s.handleCheckAvailability)

	// Assistant tools
	r.Group(func(r chi.Router) {
		r.Use(requireToolSecret(s.cfg.Tool.Secret))
		r.Post("/offers/compose", s.handleComposeOffer)
		r.Post("/retell/tool/compose_offer", s.handleComposeOffer)
		r.Get("/retell/tool/ping", s.handleToolPing)
		r.Get("/retell/tool/config", s.handleToolConfig)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "")
	})
	return r
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// routeList walks the router and returns "METHOD /path" entries, sorted.
func routeList(r chi.Routes) []string {
	var routes []string
	_ = chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, method+" "+route)
		return nil
	})
	sort.Strings(routes)
	return routes
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}
