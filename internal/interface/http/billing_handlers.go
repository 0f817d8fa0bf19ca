package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/human-catalyst/catalyst-hub/internal/application/command"
	"github.com/human-catalyst/catalyst-hub/internal/domain/billing"
	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"
	"github.com/human-catalyst/catalyst-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// BILLING HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleCreateCustomer handles POST /api/create-customer
//
// Idempotent: a profile that already has a Stripe customer gets the same
// customer ID back.
func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	cmd := command.EnsureCustomerCommand{UserID: userIDFrom(r)}

	result, err := s.deps.EnsureCustomerHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "create customer")
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]interface{}{
		"customer_id": result.CustomerID,
		"created":     result.Created,
	})
}

// checkoutRequest is the POST /api/create-checkout-session payload. Tier
// selects the product ("student" or "teacher", defaulting to student) and
// plan the billing cadence.
type checkoutRequest struct {
	Plan string `json:"plan"`
	Tier string `json:"tier"`
}

// handleCreateCheckoutSession handles POST /api/create-checkout-session
func (s *Server) handleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.StartCheckoutCommand{
		UserID:  userIDFrom(r),
		Tier:    billing.NormalizeTier(req.Tier),
		Cadence: billing.PlanType(req.Plan),
	}

	result, err := s.deps.StartCheckoutHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "create checkout session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"session_id":   result.SessionID,
		"checkout_url": result.CheckoutURL,
	})
}

// paymentSuccessResponse is the GET /api/payment-success body.
type paymentSuccessResponse struct {
	Paid    bool   `json:"paid"`
	Role    string `json:"role,omitempty"`
	PlanTag string `json:"plan_type,omitempty"`
}

// handlePaymentSuccess handles GET /api/payment-success
//
// The return leg from Stripe's hosted checkout. Applies the paid session
// immediately instead of waiting for the webhook.
func (s *Server) handlePaymentSuccess(w http.ResponseWriter, r *http.Request) {
	sessionID := getQueryParam(r, "session_id", "")
	if sessionID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "session_id query parameter is required")
		return
	}

	cmd := command.ConfirmCheckoutCommand{
		UserID:    userIDFrom(r),
		SessionID: sessionID,
	}

	result, err := s.deps.ConfirmCheckoutHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "confirm checkout")
		return
	}

	writeJSON(w, http.StatusOK, paymentSuccessResponse{
		Paid:    result.Paid,
		Role:    result.Role,
		PlanTag: result.PlanTag,
	})
}

// handleCreatePortalSession handles POST /api/create-portal-session
func (s *Server) handleCreatePortalSession(w http.ResponseWriter, r *http.Request) {
	cmd := command.OpenPortalCommand{UserID: userIDFrom(r)}

	result, err := s.deps.OpenPortalHandler.Handle(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, profile.ErrNoBillingCustomer) {
			writeJSONError(w, http.StatusConflict, "no_billing_customer", "Create a billing customer first")
			return
		}
		s.writeDomainError(w, r, err, "create portal session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"portal_url": result.PortalURL})
}

// ══════════════════════════════════════════════════════════════════════════════
// STRIPE WEBHOOK
// ══════════════════════════════════════════════════════════════════════════════

// maxWebhookBody caps webhook payloads.
const maxWebhookBody = 1 << 20 // 1 MB

// handleStripeWebhook handles POST /api/webhook
//
// Verifies the Stripe-Signature header, decodes the event and hands it to
// the reconciler. A non-200 makes Stripe retry, so processing failures are
// surfaced as 500 while permanently-bad payloads get 400.
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.logger.Error("failed to read webhook body", logger.Err(err))
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return
	}
	defer r.Body.Close()

	event, err := s.deps.WebhookDecoder.Decode(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		s.logger.Warn("webhook rejected",
			logger.String("ip", getClientIP(r)),
			logger.Err(err),
		)
		writeJSONError(w, http.StatusBadRequest, "invalid_signature", "Webhook verification failed")
		return
	}

	s.logger.Info("received billing webhook",
		logger.String("event_id", event.ProviderEventID()),
		logger.String("event_type", fmt.Sprintf("%T", event)),
	)

	if err := s.deps.ReconcileBillingHandler.Handle(r.Context(), event); err != nil {
		s.logger.Error("failed to reconcile billing event",
			logger.String("event_id", event.ProviderEventID()),
			logger.Err(err),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to process event")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
