// Package server exposes the intake pipeline over HTTP. Routing and
// transport concerns stay thin; all decisions live in the services.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"lead-intake-service/internal/common/config"
	"lead-intake-service/internal/common/logger"
	"lead-intake-service/internal/common/observability"
	"lead-intake-service/internal/failure"
	"lead-intake-service/internal/intake"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

type Server struct {
	httpServer *http.Server
	intake     *intake.Service
	failures   *failure.Service
	logger     logger.Logger
	throttle   *rate.Limiter
	obs        *observability.Observability
}

func New(cfg config.ServerConfig, rl config.RateLimitConfig, intakeSvc *intake.Service, failureSvc *failure.Service, obs *observability.Observability, log logger.Logger) *Server {
	s := &Server{
		intake:   intakeSvc,
		failures: failureSvc,
		logger:   log.WithFields(map[string]interface{}{"component": "http"}),
		throttle: rate.NewLimiter(rate.Limit(rl.GlobalRPS), rl.GlobalBurst),
		obs:      obs,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /leads", s.handleCreateLead)
	mux.HandleFunc("GET /leads", s.handleListLeads)
	mux.HandleFunc("GET /leads/{id}", s.handleGetLead)
	mux.HandleFunc("PUT /leads/{id}/status", s.handleUpdateLeadStatus)
	mux.HandleFunc("GET /leads/{id}/resume", s.handleGetResume)
	mux.HandleFunc("GET /admin/failed-notifications", s.handleListFailures)
	mux.HandleFunc("POST /admin/failed-notifications/{id}/resend", s.handleResendFailure)
	mux.HandleFunc("DELETE /admin/failed-notifications/{id}", s.handleDiscardFailure)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.throttleMiddleware(mux),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Millisecond,
	}
	return s
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", map[string]interface{}{
		"addr": s.httpServer.Addr,
	})
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// throttleMiddleware is a coarse process-wide token bucket in front of the
// per-client admission gate. It protects aggregate capacity; per-identity
// fairness is the gate's job.
func (s *Server) throttleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.throttle.Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey derives the client identity for admission: first X-Forwarded-For
// hop when present, otherwise the remote address host.
func clientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
