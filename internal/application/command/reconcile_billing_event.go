package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/billing"
	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILE BILLING EVENT
// Applies one verified webhook event to local state. The profile update,
// the subscription upsert and the processed-event mark commit in a single
// transaction, and the processed-event mark makes retried deliveries
// no-ops. Events for customers we do not know are acknowledged without
// changes so the provider stops retrying them.
// ══════════════════════════════════════════════════════════════════════════════

// ReconcileBillingEventHandler applies billing webhook events.
type ReconcileBillingEventHandler struct {
	profileRepo profile.Repository
	subRepo     billing.Repository
	eventLog    billing.EventLog
	uow         billing.UnitOfWork
	publisher   shared.EventPublisher
	logger      *slog.Logger
}

// NewReconcileBillingEventHandler creates a new handler.
func NewReconcileBillingEventHandler(
	profileRepo profile.Repository,
	subRepo billing.Repository,
	eventLog billing.EventLog,
	uow billing.UnitOfWork,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *ReconcileBillingEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileBillingEventHandler{
		profileRepo: profileRepo,
		subRepo:     subRepo,
		eventLog:    eventLog,
		uow:         uow,
		publisher:   publisher,
		logger:      logger,
	}
}

// Handle applies the event. A nil return means the event is consumed:
// either its changes committed or it was deliberately skipped.
func (h *ReconcileBillingEventHandler) Handle(ctx context.Context, event billing.Event) error {
	processed, err := h.eventLog.IsProcessed(ctx, event.ProviderEventID())
	if err != nil {
		return fmt.Errorf("reconcile: failed to check event log: %w", err)
	}
	if processed {
		h.logger.Info("billing event already processed", slog.String("event_id", event.ProviderEventID()))
		return nil
	}

	var applyErr error
	switch e := event.(type) {
	case billing.CheckoutCompleted:
		applyErr = h.applyCheckoutCompleted(ctx, e)
	case billing.SubscriptionUpdated:
		applyErr = h.applySubscriptionUpdated(ctx, e)
	case billing.SubscriptionDeleted:
		applyErr = h.applySubscriptionDeleted(ctx, e)
	case billing.PaymentSucceeded:
		applyErr = h.applyPaymentSucceeded(ctx, e)
	case billing.PaymentFailed:
		applyErr = h.applyPaymentFailed(ctx, e)
	case billing.Unhandled:
		h.logger.Debug("ignoring billing event", slog.String("type", e.Type))
		return nil
	default:
		return fmt.Errorf("reconcile: unknown billing event %T", event)
	}

	// A concurrent delivery of the same event won the race. Not an error.
	if errors.Is(applyErr, billing.ErrEventAlreadyProcessed) {
		return nil
	}
	return applyErr
}

// applyCheckoutCompleted activates the subscription the checkout started.
// The session metadata carries our user ID, so this event also repairs
// profiles whose customer link was never stored.
func (h *ReconcileBillingEventHandler) applyCheckoutCompleted(ctx context.Context, e billing.CheckoutCompleted) error {
	p, err := h.lookupProfile(ctx, e.UserID, e.CustomerID)
	if err != nil {
		if shared.IsNotFound(err) {
			h.logger.Warn("checkout for unknown profile",
				slog.String("event_id", e.ProviderEventID()),
				slog.String("customer_id", e.CustomerID),
			)
			return h.markOnly(ctx, e.ProviderEventID(), "checkout.session.completed", e.ReceivedAt)
		}
		return err
	}

	if err := p.AttachCustomer(e.CustomerID); err != nil {
		return err
	}
	if err := p.ApplySubscription(e.SubscriptionID, profile.SubscriptionActive, e.PlanTag); err != nil {
		return err
	}

	plan := cadencePlan(e.Cadence)
	sub := h.subscriptionRecord(ctx, e.SubscriptionID, func(s *billing.Subscription) {
		_ = s.Sync(billing.StatusActive, plan, time.Time{})
	}, p.ID, e.CustomerID, plan)

	if err := h.commit(ctx, p, sub, e.ProviderEventID(), "checkout.session.completed", e.ReceivedAt); err != nil {
		return err
	}

	h.publish(shared.NewSubscriptionUpdatedEvent(p.ID, e.SubscriptionID, string(billing.StatusActive), string(plan), time.Time{}))
	return nil
}

// applySubscriptionUpdated mirrors the provider's subscription state.
// The event carries the price interval, not the purchased tier, so the
// profile's role is left alone: a renewal would otherwise read the
// cadence as a plan tag and demote every Teacher to Student.
func (h *ReconcileBillingEventHandler) applySubscriptionUpdated(ctx context.Context, e billing.SubscriptionUpdated) error {
	p, err := h.profileRepo.GetByCustomerID(ctx, e.CustomerID)
	if err != nil {
		if shared.IsNotFound(err) {
			h.logger.Warn("subscription update for unknown customer",
				slog.String("event_id", e.ProviderEventID()),
				slog.String("customer_id", e.CustomerID),
			)
			return h.markOnly(ctx, e.ProviderEventID(), "customer.subscription.updated", e.ReceivedAt)
		}
		return fmt.Errorf("reconcile: failed to load profile: %w", err)
	}

	planType := billing.PlanTypeFromInterval(e.PriceInterval)
	status := statusFromProvider(e.Status)

	if err := p.SyncSubscriptionState(e.SubscriptionID, profileStatus(status)); err != nil {
		return err
	}

	sub := h.subscriptionRecord(ctx, e.SubscriptionID, func(s *billing.Subscription) {
		_ = s.Sync(status, planType, e.CurrentPeriodEnd)
	}, p.ID, e.CustomerID, planType)

	if err := h.commit(ctx, p, sub, e.ProviderEventID(), "customer.subscription.updated", e.ReceivedAt); err != nil {
		return err
	}

	h.publish(shared.NewSubscriptionUpdatedEvent(p.ID, e.SubscriptionID, string(status), string(planType), e.CurrentPeriodEnd))
	return nil
}

// applySubscriptionDeleted drops the user to the free tier. The customer
// reference stays so a later re-subscribe reuses the same customer.
func (h *ReconcileBillingEventHandler) applySubscriptionDeleted(ctx context.Context, e billing.SubscriptionDeleted) error {
	p, err := h.profileRepo.GetByCustomerID(ctx, e.CustomerID)
	if err != nil {
		if shared.IsNotFound(err) {
			h.logger.Warn("subscription delete for unknown customer",
				slog.String("event_id", e.ProviderEventID()),
				slog.String("customer_id", e.CustomerID),
			)
			return h.markOnly(ctx, e.ProviderEventID(), "customer.subscription.deleted", e.ReceivedAt)
		}
		return fmt.Errorf("reconcile: failed to load profile: %w", err)
	}

	subscriptionID := e.SubscriptionID
	p.CancelSubscription()

	sub := h.subscriptionRecord(ctx, subscriptionID, func(s *billing.Subscription) {
		s.Cancel()
	}, p.ID, e.CustomerID, billing.PlanMonthly)

	if err := h.commit(ctx, p, sub, e.ProviderEventID(), "customer.subscription.deleted", e.ReceivedAt); err != nil {
		return err
	}

	h.publish(shared.NewSubscriptionCanceledEvent(p.ID, subscriptionID))
	return nil
}

// applyPaymentSucceeded clears a past-due flag after a recovered renewal.
func (h *ReconcileBillingEventHandler) applyPaymentSucceeded(ctx context.Context, e billing.PaymentSucceeded) error {
	p, err := h.profileRepo.GetByCustomerID(ctx, e.CustomerID)
	if err != nil {
		if shared.IsNotFound(err) {
			return h.markOnly(ctx, e.ProviderEventID(), "invoice.payment_succeeded", e.ReceivedAt)
		}
		return fmt.Errorf("reconcile: failed to load profile: %w", err)
	}

	if p.SubscriptionStatus == profile.SubscriptionPastDue {
		p.RecoverPayment()
		return h.commit(ctx, p, nil, e.ProviderEventID(), "invoice.payment_succeeded", e.ReceivedAt)
	}
	return h.markOnly(ctx, e.ProviderEventID(), "invoice.payment_succeeded", e.ReceivedAt)
}

// applyPaymentFailed flags the profile past due. Access continues until
// the provider gives up and deletes the subscription.
func (h *ReconcileBillingEventHandler) applyPaymentFailed(ctx context.Context, e billing.PaymentFailed) error {
	p, err := h.profileRepo.GetByCustomerID(ctx, e.CustomerID)
	if err != nil {
		if shared.IsNotFound(err) {
			return h.markOnly(ctx, e.ProviderEventID(), "invoice.payment_failed", e.ReceivedAt)
		}
		return fmt.Errorf("reconcile: failed to load profile: %w", err)
	}

	p.MarkPastDue()
	return h.commit(ctx, p, nil, e.ProviderEventID(), "invoice.payment_failed", e.ReceivedAt)
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// lookupProfile tries the metadata user ID first, then the customer link.
func (h *ReconcileBillingEventHandler) lookupProfile(ctx context.Context, userID, customerID string) (*profile.Profile, error) {
	if userID != "" {
		p, err := h.profileRepo.GetByID(ctx, userID)
		if err == nil {
			return p, nil
		}
		if !shared.IsNotFound(err) {
			return nil, fmt.Errorf("reconcile: failed to load profile: %w", err)
		}
	}
	if customerID == "" {
		return nil, shared.ErrProfileNotFound
	}
	return h.profileRepo.GetByCustomerID(ctx, customerID)
}

// subscriptionRecord loads the existing record by provider ID or builds a
// fresh one, then applies mutate.
func (h *ReconcileBillingEventHandler) subscriptionRecord(
	ctx context.Context,
	providerID string,
	mutate func(*billing.Subscription),
	userID, customerID string,
	plan billing.PlanType,
) *billing.Subscription {
	if providerID == "" {
		return nil
	}
	sub, err := h.subRepo.GetByProviderID(ctx, providerID)
	if err != nil {
		sub, err = billing.NewSubscription(billing.NewSubscriptionParams{
			ID:                   uuid.NewString(),
			UserID:               userID,
			StripeSubscriptionID: providerID,
			StripeCustomerID:     customerID,
			Status:               billing.StatusActive,
			PlanType:             plan,
		})
		if err != nil {
			return nil
		}
	}
	mutate(sub)
	return sub
}

// commit writes the profile, the optional subscription record and the
// event mark in one transaction.
func (h *ReconcileBillingEventHandler) commit(
	ctx context.Context,
	p *profile.Profile,
	sub *billing.Subscription,
	eventID, eventType string,
	receivedAt time.Time,
) error {
	return h.uow.Reconcile(ctx, func(tx billing.ReconcileTx) error {
		if err := tx.UpdateProfile(ctx, p); err != nil {
			return err
		}
		if sub != nil {
			if err := tx.UpsertSubscription(ctx, sub); err != nil {
				return err
			}
		}
		return tx.MarkEventProcessed(ctx, eventID, eventType, receivedAt)
	})
}

// markOnly records the event without touching any state.
func (h *ReconcileBillingEventHandler) markOnly(ctx context.Context, eventID, eventType string, receivedAt time.Time) error {
	err := h.eventLog.MarkProcessed(ctx, eventID, eventType, receivedAt)
	if errors.Is(err, billing.ErrEventAlreadyProcessed) {
		return nil
	}
	return err
}

func (h *ReconcileBillingEventHandler) publish(event shared.Event) {
	if h.publisher != nil {
		_ = h.publisher.Publish(event)
	}
}

// cadencePlan maps a checkout cadence tag onto a plan type, defaulting
// to monthly the same way PlanTypeFromInterval does.
func cadencePlan(cadence string) billing.PlanType {
	plan := billing.PlanType(cadence)
	if !plan.IsValid() {
		return billing.PlanMonthly
	}
	return plan
}

// statusFromProvider maps Stripe subscription statuses onto ours.
func statusFromProvider(s string) billing.Status {
	switch s {
	case "active", "trialing":
		return billing.StatusActive
	case "past_due", "unpaid", "incomplete":
		return billing.StatusPastDue
	default:
		return billing.StatusCancelled
	}
}

func profileStatus(s billing.Status) profile.SubscriptionStatus {
	switch s {
	case billing.StatusActive:
		return profile.SubscriptionActive
	case billing.StatusPastDue:
		return profile.SubscriptionPastDue
	default:
		return profile.SubscriptionCancelled
	}
}
