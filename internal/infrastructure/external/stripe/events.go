package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/billing"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// ══════════════════════════════════════════════════════════════════════════════
// WEBHOOK DECODER
// Verifies the Stripe-Signature header and decodes the raw event into one
// variant of the billing event union. Unknown event types decode to
// billing.Unhandled rather than an error.
// ══════════════════════════════════════════════════════════════════════════════

// WebhookDecoder verifies and decodes Stripe webhook payloads.
type WebhookDecoder struct {
	secret string
}

// NewWebhookDecoder creates a decoder for the given signing secret.
func NewWebhookDecoder(secret string) *WebhookDecoder {
	return &WebhookDecoder{secret: secret}
}

// Decode verifies the signature and maps the payload to a billing event.
// Returns shared.ErrWebhookSignature when verification fails.
func (d *WebhookDecoder) Decode(payload []byte, signatureHeader string) (billing.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, d.secret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrWebhookSignature, err)
	}
	return mapEvent(event)
}

func mapEvent(event stripe.Event) (billing.Event, error) {
	receivedAt := time.Unix(event.Created, 0).UTC()

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		return billing.NewCheckoutCompleted(event.ID, receivedAt,
			sess.Metadata["user_id"],
			sess.Metadata["plan_type"],
			sess.Metadata["cadence"],
			customerID(sess.Customer),
			subscriptionID(sess.Subscription),
		), nil

	case "customer.subscription.created", "customer.subscription.updated":
		sub, err := decodeSubscription(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		interval := ""
		if len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil && sub.Items.Data[0].Price.Recurring != nil {
			interval = string(sub.Items.Data[0].Price.Recurring.Interval)
		}
		return billing.NewSubscriptionUpdated(event.ID, receivedAt,
			sub.ID,
			customerID(sub.Customer),
			string(sub.Status),
			interval,
			time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		), nil

	case "customer.subscription.deleted":
		sub, err := decodeSubscription(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		return billing.NewSubscriptionDeleted(event.ID, receivedAt, sub.ID, customerID(sub.Customer)), nil

	case "invoice.payment_succeeded":
		inv, err := decodeInvoice(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		return billing.NewPaymentSucceeded(event.ID, receivedAt, customerID(inv.Customer), inv.ID, inv.AmountPaid), nil

	case "invoice.payment_failed":
		inv, err := decodeInvoice(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		return billing.NewPaymentFailed(event.ID, receivedAt, customerID(inv.Customer), inv.ID), nil

	default:
		return billing.NewUnhandled(event.ID, receivedAt, string(event.Type)), nil
	}
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func subscriptionID(s *stripe.Subscription) string {
	if s == nil {
		return ""
	}
	return s.ID
}

func decodeSubscription(raw json.RawMessage) (*stripe.Subscription, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}
	return &sub, nil
}

func decodeInvoice(raw json.RawMessage) (*stripe.Invoice, error) {
	var inv stripe.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("decode invoice: %w", err)
	}
	return &inv, nil
}
