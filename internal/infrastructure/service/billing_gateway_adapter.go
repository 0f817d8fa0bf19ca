package service

import (
	"context"

	"github.com/human-catalyst/catalyst-hub/internal/application/command"
	"github.com/human-catalyst/catalyst-hub/internal/domain/billing"
	"github.com/human-catalyst/catalyst-hub/internal/infrastructure/external/stripe"
)

// BillingGatewayAdapter adapts the stripe.Client to the
// command.BillingGateway interface.
type BillingGatewayAdapter struct {
	client *stripe.Client
}

func NewBillingGatewayAdapter(client *stripe.Client) *BillingGatewayAdapter {
	return &BillingGatewayAdapter{client: client}
}

func (a *BillingGatewayAdapter) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	return a.client.CreateCustomer(ctx, email, userID)
}

func (a *BillingGatewayAdapter) CreateCheckoutSession(ctx context.Context, customerID, userID string, tier billing.Tier, cadence billing.PlanType) (*command.CheckoutSessionData, error) {
	sess, err := a.client.CreateCheckoutSession(ctx, customerID, userID, tier, cadence)
	if err != nil {
		return nil, err
	}
	return mapCheckoutSession(sess), nil
}

func (a *BillingGatewayAdapter) GetCheckoutSession(ctx context.Context, sessionID string) (*command.CheckoutSessionData, error) {
	sess, err := a.client.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return mapCheckoutSession(sess), nil
}

func (a *BillingGatewayAdapter) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	return a.client.CreatePortalSession(ctx, customerID)
}

func mapCheckoutSession(sess *stripe.CheckoutSession) *command.CheckoutSessionData {
	return &command.CheckoutSessionData{
		SessionID:      sess.ID,
		URL:            sess.URL,
		CustomerID:     sess.CustomerID,
		SubscriptionID: sess.SubscriptionID,
		PaymentStatus:  sess.PaymentStatus,
		UserID:         sess.UserID,
		PlanTag:        sess.PlanTag,
		Cadence:        sess.Cadence,
	}
}
