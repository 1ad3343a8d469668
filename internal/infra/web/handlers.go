package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"billing-sync/internal/domain"
	"billing-sync/internal/domain/model"
	"billing-sync/internal/infra/logging"
)

// Well above any realistic provider event; oversized bodies get an explicit
// 413 instead of being truncated into a signature mismatch.
const maxWebhookBody = 1 << 20

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// handleWebhook receives provider events. The raw body must reach signature
// verification untouched, so it is read before any decoding happens.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	signature := r.Header.Get("Stripe-Signature")
	log := logging.With(r.Context(), s.log)

	eventType, err := s.reconcileUC.HandleWebhook(r.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			log.Error().Msg("webhook received but signing secret is not configured")
			writeError(w, http.StatusInternalServerError, "webhook not configured")
			return
		}
		log.Warn().Err(err).Msg("webhook rejected")
		writeError(w, http.StatusBadRequest, "invalid webhook")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"received": true, "event_type": eventType})
}

type checkoutRequest struct {
	Tier         string `json:"tier"`
	BillingCycle string `json:"billingCycle"`
}

func (s *Server) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	redirect, err := s.billingUC.CreateCheckout(r.Context(), userIDFrom(r), model.Tier(req.Tier), model.BillingCycle(req.BillingCycle))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrMissingUserID) {
			writeError(w, http.StatusBadRequest, "unknown tier or billing cycle")
			return
		}
		logging.With(r.Context(), s.log).Error().Err(err).Msg("create checkout failed")
		writeError(w, http.StatusBadGateway, "checkout unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": redirect.URL, "sessionId": redirect.SessionID})
}

func (s *Server) handleSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	// Never errors: backend trouble degrades to the free-tier default.
	view := s.billingUC.Status(r.Context(), userIDFrom(r))
	writeJSON(w, http.StatusOK, map[string]any{"subscription": view})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	msg, err := s.billingUC.Cancel(r.Context(), userIDFrom(r))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNoSubscription) {
			writeError(w, http.StatusBadRequest, "no active subscription to cancel")
			return
		}
		logging.With(r.Context(), s.log).Error().Err(err).Msg("cancel failed")
		writeError(w, http.StatusBadGateway, "cancellation unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msg})
}

func (s *Server) handleVerifySession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	v, err := s.billingUC.VerifySession(r.Context(), userIDFrom(r), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, "invalid session_id")
			return
		}
		logging.With(r.Context(), s.log).Warn().Err(err).Str("session_id", sessionID).Msg("verify session failed")
		writeError(w, http.StatusBadGateway, "verification unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": v.Success,
		"subscription": map[string]string{
			"tier":         string(v.Tier),
			"billingCycle": string(v.Cycle),
		},
	})
}

func (s *Server) handleThrottleStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	// The use case degrades internally; this endpoint never 5xxs.
	writeJSON(w, http.StatusOK, s.throttleUC.Status(r.Context(), userID))
}
