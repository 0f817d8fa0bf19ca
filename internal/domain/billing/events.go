package billing

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// WEBHOOK EVENT UNION
// Webhook payloads are decoded in the infrastructure layer into exactly one
// of the variants below. The reconciler switches over the closed set, so a
// new variant immediately shows up as an unhandled case in review.
// ══════════════════════════════════════════════════════════════════════════════

// Event is the sealed interface over webhook event variants.
// Only types in this package implement it.
type Event interface {
	// ProviderEventID returns the provider's unique event identifier,
	// used for idempotent processing.
	ProviderEventID() string

	isBillingEvent()
}

// baseEvent carries the fields every variant shares.
type baseEvent struct {
	// EventID - the provider's event identifier (evt_...).
	EventID string

	// ReceivedAt - when the webhook arrived.
	ReceivedAt time.Time
}

func (e baseEvent) ProviderEventID() string { return e.EventID }
func (e baseEvent) isBillingEvent()         {}

// The variants embed an unexported base, so the infrastructure decoder
// builds them through the constructors below.

// CheckoutCompleted - a checkout session finished and payment cleared.
// Metadata set at session creation carries our user ID, the purchased
// tier tag and the billing cadence back.
type CheckoutCompleted struct {
	baseEvent

	// UserID - our profile ID, from the session metadata.
	UserID string

	// PlanTag - the tier tag chosen at checkout ("student", "teacher"),
	// from the session metadata. Decides the role granted.
	PlanTag string

	// Cadence - "monthly" or "yearly", from the session metadata.
	// Decides the Subscription row's plan type, never the role.
	Cadence string

	// CustomerID - the provider customer the session was created for.
	CustomerID string

	// SubscriptionID - the subscription the checkout started.
	SubscriptionID string
}

// NewCheckoutCompleted builds a CheckoutCompleted variant.
func NewCheckoutCompleted(eventID string, receivedAt time.Time, userID, planTag, cadence, customerID, subscriptionID string) CheckoutCompleted {
	return CheckoutCompleted{
		baseEvent:      baseEvent{EventID: eventID, ReceivedAt: receivedAt},
		UserID:         userID,
		PlanTag:        planTag,
		Cadence:        cadence,
		CustomerID:     customerID,
		SubscriptionID: subscriptionID,
	}
}

// SubscriptionUpdated - the provider changed a subscription
// (renewal, plan switch, payment state transition).
type SubscriptionUpdated struct {
	baseEvent

	// SubscriptionID - the provider subscription reference.
	SubscriptionID string

	// CustomerID - the provider customer reference. Profiles are looked
	// up by this value.
	CustomerID string

	// Status - the provider's raw status string (active, past_due, ...).
	Status string

	// PriceInterval - "month" or "year" from the first subscription item.
	PriceInterval string

	// CurrentPeriodEnd - when the paid period runs out.
	CurrentPeriodEnd time.Time
}

// NewSubscriptionUpdated builds a SubscriptionUpdated variant.
func NewSubscriptionUpdated(eventID string, receivedAt time.Time, subscriptionID, customerID, status, priceInterval string, currentPeriodEnd time.Time) SubscriptionUpdated {
	return SubscriptionUpdated{
		baseEvent:        baseEvent{EventID: eventID, ReceivedAt: receivedAt},
		SubscriptionID:   subscriptionID,
		CustomerID:       customerID,
		Status:           status,
		PriceInterval:    priceInterval,
		CurrentPeriodEnd: currentPeriodEnd,
	}
}

// SubscriptionDeleted - the subscription ended at the provider.
type SubscriptionDeleted struct {
	baseEvent

	// SubscriptionID - the provider subscription reference.
	SubscriptionID string

	// CustomerID - the provider customer reference.
	CustomerID string
}

// NewSubscriptionDeleted builds a SubscriptionDeleted variant.
func NewSubscriptionDeleted(eventID string, receivedAt time.Time, subscriptionID, customerID string) SubscriptionDeleted {
	return SubscriptionDeleted{
		baseEvent:      baseEvent{EventID: eventID, ReceivedAt: receivedAt},
		SubscriptionID: subscriptionID,
		CustomerID:     customerID,
	}
}

// PaymentSucceeded - a renewal invoice was paid.
type PaymentSucceeded struct {
	baseEvent

	// CustomerID - the provider customer reference.
	CustomerID string

	// InvoiceID - the paid invoice.
	InvoiceID string

	// AmountPaid - amount in the smallest currency unit.
	AmountPaid int64
}

// NewPaymentSucceeded builds a PaymentSucceeded variant.
func NewPaymentSucceeded(eventID string, receivedAt time.Time, customerID, invoiceID string, amountPaid int64) PaymentSucceeded {
	return PaymentSucceeded{
		baseEvent:  baseEvent{EventID: eventID, ReceivedAt: receivedAt},
		CustomerID: customerID,
		InvoiceID:  invoiceID,
		AmountPaid: amountPaid,
	}
}

// PaymentFailed - a renewal invoice could not be collected.
type PaymentFailed struct {
	baseEvent

	// CustomerID - the provider customer reference.
	CustomerID string

	// InvoiceID - the failed invoice.
	InvoiceID string
}

// NewPaymentFailed builds a PaymentFailed variant.
func NewPaymentFailed(eventID string, receivedAt time.Time, customerID, invoiceID string) PaymentFailed {
	return PaymentFailed{
		baseEvent:  baseEvent{EventID: eventID, ReceivedAt: receivedAt},
		CustomerID: customerID,
		InvoiceID:  invoiceID,
	}
}

// Unhandled - an event type we receive but do not act on. Decoding never
// fails on unknown types; the reconciler acknowledges these and moves on.
type Unhandled struct {
	baseEvent

	// Type - the provider's raw event type string.
	Type string
}

// NewUnhandled builds an Unhandled variant.
func NewUnhandled(eventID string, receivedAt time.Time, eventType string) Unhandled {
	return Unhandled{
		baseEvent: baseEvent{EventID: eventID, ReceivedAt: receivedAt},
		Type:      eventType,
	}
}
