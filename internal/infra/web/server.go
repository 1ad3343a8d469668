package web

import (
	"context"
	"fmt"
	"net/http"

	"billing-sync/internal/infra/logging"
	"billing-sync/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type ctxKey string

const ctxUserID ctxKey = "user_id"

type Server struct {
	reconcileUC usecase.ReconcileUseCase
	billingUC   usecase.BillingUseCase
	throttleUC  usecase.ThrottleUseCase
	auth        *AuthManager
	log         *zerolog.Logger
	server      *http.Server
}

func NewServer(
	reconcileUC usecase.ReconcileUseCase,
	billingUC usecase.BillingUseCase,
	throttleUC usecase.ThrottleUseCase,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		reconcileUC: reconcileUC,
		billingUC:   billingUC,
		throttleUC:  throttleUC,
		auth:        auth,
		log:         logger,
	}
}

// Router builds the HTTP surface. The webhook route stays outside the auth
// group: the provider authenticates with its signature, not a session.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDContext)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/billing/webhook", s.handleWebhook)
	r.Get("/api/billing/throttle-status", s.handleThrottleStatus)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/api/billing/checkout", s.handleCreateCheckout)
		r.Get("/api/billing/subscription", s.handleSubscriptionStatus)
		r.Post("/api/billing/cancel", s.handleCancel)
		r.Get("/api/billing/verify-session", s.handleVerifySession)
	})

	return r
}

func (s *Server) Start(port int) error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Router(),
	}
	s.log.Info().Int("port", port).Msg("HTTP server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// authMiddleware resolves the bearer token to a user id and stashes it in
// the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, err := s.auth.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid session")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, userID)
		ctx = logging.WithUserID(ctx, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestIDContext copies chi's request id into the logging context so
// request-scoped loggers pick it up.
func requestIDContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(logging.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func userIDFrom(r *http.Request) string {
	if v := r.Context().Value(ctxUserID); v != nil {
		return v.(string)
	}
	return ""
}
