package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"marketplace-spotlight/internal/usecase"
)

// StatusCache is the read-through cache consulted by payment polling.
type StatusCache interface {
	Get(ctx context.Context, requestID string, dst interface{}) (bool, error)
	Put(ctx context.Context, requestID string, v interface{}) error
	Invalidate(ctx context.Context, requestID string) error
}

type Server struct {
	requestUC usecase.RequestUseCase
	payUC     usecase.PaymentUseCase
	availUC   usecase.AvailabilityUseCase
	auth      *AuthManager
	cache     StatusCache
	adminKey  string
	log       *zerolog.Logger
}

func NewServer(
	requestUC usecase.RequestUseCase,
	payUC usecase.PaymentUseCase,
	availUC usecase.AvailabilityUseCase,
	auth *AuthManager,
	cache StatusCache,
	adminKey string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		requestUC: requestUC,
		payUC:     payUC,
		availUC:   availUC,
		auth:      auth,
		cache:     cache,
		adminKey:  adminKey,
		log:       logger,
	}
}

// Router builds the full route tree: public booking API, admin API behind
// JWT, plus health and metrics endpoints.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(s.traceMiddleware)
	r.Use(s.requestLogMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/availability", s.handleAvailability)
		r.Get("/availability/check", s.handleAvailabilityCheck)

		r.Post("/requests", s.handleCreateRequest)
		r.Get("/projects/{projectId}/requests", s.handleListProjectRequests)

		r.Route("/requests/{id}", func(r chi.Router) {
			r.Use(s.requestContext)
			r.Get("/", s.handleGetRequest)
			r.Post("/payment-session", s.handleCreatePaymentSession)
			r.Get("/payment", s.handlePaymentStatus)
			r.Post("/pay", s.handleWalletPay)
		})

		r.Post("/admin/login", s.handleAdminLogin)
		r.Post("/admin/logout", s.handleAdminLogout)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/requests", s.handleAdminListRequests)

			r.Route("/requests/{id}", func(r chi.Router) {
				r.Use(s.requestContext)
				r.Post("/approve", s.handleApprove)
				r.Post("/approve-free", s.handleApproveFree)
				r.Post("/reject", s.handleReject)
				r.Post("/cancel", s.handleCancel)
				r.Post("/end-early", s.handleEndEarly)
				r.Post("/reconcile", s.handleReconcile)
			})
		})
	})

	return r
}

// authMiddleware gates the admin API behind a valid session token.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe runs the HTTP server with sane timeouts.
func (s *Server) ListenAndServe(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}
