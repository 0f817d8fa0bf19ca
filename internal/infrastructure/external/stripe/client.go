// Package stripe implements the Stripe billing API client.
// This package handles all communication with Stripe, including customer
// creation, checkout and portal sessions, and subscription lookups.
package stripe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/billing"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
	"github.com/human-catalyst/catalyst-hub/pkg/circuitbreaker"
	"github.com/human-catalyst/catalyst-hub/pkg/retry"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the Stripe client.
type ClientConfig struct {
	// SecretKey is the Stripe API secret key (sk_...).
	SecretKey string

	// WebhookSecret is the endpoint signing secret (whsec_...).
	WebhookSecret string

	// Price IDs per tier and billing cadence.
	PriceIDStudentMonthly string
	PriceIDStudentYearly  string
	PriceIDTeacherMonthly string
	PriceIDTeacherYearly  string

	// SuccessURL is where checkout redirects after payment.
	// Stripe substitutes {CHECKOUT_SESSION_ID} in the query string.
	SuccessURL string

	// CancelURL is where checkout redirects on abandonment.
	CancelURL string

	// PortalReturnURL is where the customer portal sends the user back.
	PortalReturnURL string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// Retry tuning. Zero values use the Stripe presets.
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// Circuit breaker tuning. Zero values use the Stripe presets.
	BreakerThreshold   int
	BreakerTimeout     time.Duration
	BreakerHalfOpenMax int

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(secretKey string) ClientConfig {
	return ClientConfig{
		SecretKey: secretKey,
		Timeout:   30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client wraps the Stripe SDK behind a circuit breaker and retrier.
type Client struct {
	config  ClientConfig
	api     *client.API
	logger  *slog.Logger
	breaker *circuitbreaker.CircuitBreaker
	retrier *retry.Retrier
}

// NewClient creates a new Stripe client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	api := &client.API{}
	api.Init(config.SecretKey, nil)

	c := &Client{
		config: config,
		api:    api,
		logger: config.Logger,
	}

	if config.MaxRetries > 0 {
		c.retrier = retry.New(
			retry.WithMaxAttempts(config.MaxRetries),
			retry.WithInitialDelay(config.RetryBaseDelay),
			retry.WithMaxDelay(config.RetryMaxDelay),
			retry.WithMultiplier(2.0),
			retry.WithJitter(0.2),
		)
	} else {
		c.retrier = retry.StripeRetrier()
	}

	onStateChange := func(name string, from, to circuitbreaker.State) {
		c.logger.Warn("circuit breaker state change",
			slog.String("breaker", name),
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	}
	if config.BreakerThreshold > 0 {
		c.breaker = circuitbreaker.New("stripe-api",
			circuitbreaker.WithFailureThreshold(config.BreakerThreshold),
			circuitbreaker.WithTimeout(config.BreakerTimeout),
			circuitbreaker.WithMaxHalfOpenRequests(config.BreakerHalfOpenMax),
			circuitbreaker.WithOnStateChange(onStateChange),
		)
	} else {
		c.breaker = circuitbreaker.StripeAPIBreaker(onStateChange)
	}
	return c
}

// WebhookSecret exposes the signing secret to the webhook decoder.
func (c *Client) WebhookSecret() string {
	return c.config.WebhookSecret
}

// execute runs a Stripe call through the breaker and retrier.
func (c *Client) execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, fn)
	})
	if err != nil {
		c.logger.Error("stripe call failed", slog.String("op", op), slog.Any("error", err))
		return shared.NewDomainError("billing", op, err, "stripe api call failed")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CUSTOMER OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// CreateCustomer creates a Stripe customer carrying our user ID in metadata
// so webhook payloads can be tied back to a profile.
func (c *Client) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.AddMetadata("user_id", userID)

	var customerID string
	err := c.execute(ctx, "CreateCustomer", func(ctx context.Context) error {
		params.Context = ctx
		cust, err := c.api.Customers.New(params)
		if err != nil {
			return err
		}
		customerID = cust.ID
		return nil
	})
	if err != nil {
		return "", err
	}

	c.logger.Info("stripe customer created",
		slog.String("customer_id", customerID),
		slog.String("user_id", userID),
	)
	return customerID, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CHECKOUT OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// CheckoutSession is the slice of a Stripe checkout session we care about.
type CheckoutSession struct {
	ID             string
	URL            string
	CustomerID     string
	SubscriptionID string
	PaymentStatus  string
	UserID         string
	PlanTag        string
	Cadence        string
}

// CreateCheckoutSession starts a subscription checkout for the customer.
// User ID, tier and cadence land in the session metadata and come back on
// the checkout.session.completed webhook. The tier decides the role the
// reconciler grants, the cadence only decides the price.
func (c *Client) CreateCheckoutSession(ctx context.Context, customerID, userID string, tier billing.Tier, cadence billing.PlanType) (*CheckoutSession, error) {
	priceID := c.priceFor(tier, cadence)
	if priceID == "" {
		return nil, shared.NewDomainError("billing", "CreateCheckoutSession",
			shared.ErrValidation, fmt.Sprintf("no price configured for tier %q cadence %q", tier, cadence))
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.config.SuccessURL),
		CancelURL:  stripe.String(c.config.CancelURL),
	}
	params.AddMetadata("user_id", userID)
	params.AddMetadata("plan_type", string(tier))
	params.AddMetadata("cadence", string(cadence))

	var sess *stripe.CheckoutSession
	err := c.execute(ctx, "CreateCheckoutSession", func(ctx context.Context) error {
		params.Context = ctx
		s, err := c.api.CheckoutSessions.New(params)
		if err != nil {
			return err
		}
		sess = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	return mapCheckoutSession(sess), nil
}

// GetCheckoutSession fetches a checkout session, used by the payment
// success callback to confirm the session actually paid.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	var sess *stripe.CheckoutSession
	err := c.execute(ctx, "GetCheckoutSession", func(ctx context.Context) error {
		s, err := c.api.CheckoutSessions.Get(sessionID, &stripe.CheckoutSessionParams{
			Params: stripe.Params{Context: ctx},
		})
		if err != nil {
			return err
		}
		sess = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mapCheckoutSession(sess), nil
}

func mapCheckoutSession(sess *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:            sess.ID,
		URL:           sess.URL,
		PaymentStatus: string(sess.PaymentStatus),
		UserID:        sess.Metadata["user_id"],
		PlanTag:       sess.Metadata["plan_type"],
		Cadence:       sess.Metadata["cadence"],
	}
	if sess.Customer != nil {
		out.CustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		out.SubscriptionID = sess.Subscription.ID
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// PORTAL OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// CreatePortalSession opens the Stripe customer portal for self-service
// subscription management.
func (c *Client) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(c.config.PortalReturnURL),
	}

	var url string
	err := c.execute(ctx, "CreatePortalSession", func(ctx context.Context) error {
		params.Context = ctx
		sess, err := c.api.BillingPortalSessions.New(params)
		if err != nil {
			return err
		}
		url = sess.URL
		return nil
	})
	if err != nil {
		return "", err
	}
	return url, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBSCRIPTION OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// FetchSubscription returns Stripe's authoritative view of a subscription.
// Implements billing.SubscriptionFetcher for the renewal sweep.
func (c *Client) FetchSubscription(ctx context.Context, subscriptionID string) (*billing.ProviderSubscription, error) {
	var sub *stripe.Subscription
	err := c.execute(ctx, "FetchSubscription", func(ctx context.Context) error {
		s, err := c.api.Subscriptions.Get(subscriptionID, &stripe.SubscriptionParams{
			Params: stripe.Params{Context: ctx},
		})
		if err != nil {
			return err
		}
		sub = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &billing.ProviderSubscription{
		ID:               sub.ID,
		Status:           string(sub.Status),
		CurrentPeriodEnd: time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PriceInterval = string(sub.Items.Data[0].Price.Recurring.Interval)
	}
	return out, nil
}

func (c *Client) priceFor(tier billing.Tier, cadence billing.PlanType) string {
	if tier == billing.TierTeacher {
		if cadence == billing.PlanYearly {
			return c.config.PriceIDTeacherYearly
		}
		return c.config.PriceIDTeacherMonthly
	}
	if cadence == billing.PlanYearly {
		return c.config.PriceIDStudentYearly
	}
	return c.config.PriceIDStudentMonthly
}
