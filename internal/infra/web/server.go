// File: internal/infra/web/server.go
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"jobboard-billing/internal/infra/logging"
	"jobboard-billing/internal/usecase"
)

type Server struct {
	paymentUC   usecase.PaymentUseCase
	reconcileUC usecase.ReconcileUseCase
	subUC       usecase.SubscriptionUseCase
	invoiceUC   usecase.InvoiceUseCase
	auth        *AuthManager
	httpServer  *http.Server
	log         *zerolog.Logger
}

func NewServer(
	port int,
	paymentUC usecase.PaymentUseCase,
	reconcileUC usecase.ReconcileUseCase,
	subUC usecase.SubscriptionUseCase,
	invoiceUC usecase.InvoiceUseCase,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	compLog := logger.With().Str("component", "WebServer").Logger()
	s := &Server{
		paymentUC:   paymentUC,
		reconcileUC: reconcileUC,
		subUC:       subUC,
		invoiceUC:   invoiceUC,
		auth:        auth,
		log:         &compLog,
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the router. Exposed so tests can mount it on httptest.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Gateway callbacks carry their own signature, not a user token.
	r.Post("/api/v1/payments/gateway/webhook", s.handleWebhook)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.RequireUser)
		r.Post("/api/v1/payments", s.handleCheckout)
		r.Post("/api/v1/payments/verify", s.handleVerify)
		r.Get("/api/v1/payments/{id}/invoice", s.handleInvoice)
		r.Get("/api/v1/subscriptions", s.handleListSubscriptions)
		r.Get("/api/v1/subscriptions/current", s.handleCurrentSubscription)
		r.Post("/api/v1/subscriptions/{id}/cancel", s.handleCancelSubscription)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.auth.RequireAdmin)
		r.Get("/api/v1/admin/stats", s.handleAdminStats)
	})
	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Request-Id")
		if traceID == "" {
			traceID = uuid.NewString()
		}
		ctx := logging.WithTraceID(r.Context(), traceID)
		w.Header().Set("X-Request-Id", traceID)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}
