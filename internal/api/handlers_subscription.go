package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/id-scanner/internal/service"
)

// handlePlans handles GET /api/plans
func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"plans": s.services.Subscriptions.Plans(),
	})
}

// handleGetSubscription handles GET /api/subscription
func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Entitlements.GetSubscription(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// handleUpgrade handles POST /api/subscription/upgrade
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	var req service.UpgradeRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	userID := userIDFrom(r.Context())
	result, err := s.services.Subscriptions.Upgrade(r.Context(), userID, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	status := http.StatusAccepted
	if result.Subscription != nil {
		status = http.StatusOK
		s.rateLimiter.Forget(userID)
	}
	respondJSON(w, status, result)
}

// handleConfirmPayment handles POST /api/payments/{id}/confirm
func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	result, err := s.services.Subscriptions.Confirm(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	status := http.StatusAccepted
	if result.Subscription != nil {
		status = http.StatusOK
		s.rateLimiter.Forget(userID)
	}
	respondJSON(w, status, result)
}

// handlePaymentHistory handles GET /api/payments
func (s *Server) handlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	payments, err := s.services.Subscriptions.PaymentHistory(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"payments": payments,
		"count":    len(payments),
	})
}
