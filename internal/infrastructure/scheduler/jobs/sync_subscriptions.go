package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/billing"
	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC SUBSCRIPTIONS JOB
// Webhooks are the primary channel for billing state, but a dropped
// delivery would otherwise leave a lapsed subscription active forever.
// The sweep pulls the provider's authoritative state for every local
// subscription whose paid period is ending and reconciles it.
// ══════════════════════════════════════════════════════════════════════════════

// SyncSubscriptionsJob reconciles expiring subscriptions against the
// provider.
type SyncSubscriptionsJob struct {
	subRepo        billing.Repository
	profileRepo    profile.Repository
	fetcher        billing.SubscriptionFetcher
	eventPublisher shared.EventPublisher
	logger         *slog.Logger

	config SyncSubscriptionsConfig

	lastRunStats atomic.Value // *SubscriptionSyncStats
}

// SyncSubscriptionsConfig contains configuration for the sweep.
type SyncSubscriptionsConfig struct {
	// Lookahead selects subscriptions whose period ends before
	// now+Lookahead.
	Lookahead time.Duration

	// Timeout is the maximum duration for the whole sweep.
	Timeout time.Duration
}

// DefaultSyncSubscriptionsConfig returns sensible defaults.
func DefaultSyncSubscriptionsConfig() SyncSubscriptionsConfig {
	return SyncSubscriptionsConfig{
		Lookahead: 24 * time.Hour,
		Timeout:   5 * time.Minute,
	}
}

// SubscriptionSyncStats contains statistics from one sweep.
type SubscriptionSyncStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Checked     int
	Renewed     int
	Lapsed      int
	Errors      int
}

// NewSyncSubscriptionsJob creates a new subscription sweep job.
func NewSyncSubscriptionsJob(
	subRepo billing.Repository,
	profileRepo profile.Repository,
	fetcher billing.SubscriptionFetcher,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
	config SyncSubscriptionsConfig,
) *SyncSubscriptionsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Lookahead <= 0 {
		config.Lookahead = 24 * time.Hour
	}

	return &SyncSubscriptionsJob{
		subRepo:        subRepo,
		profileRepo:    profileRepo,
		fetcher:        fetcher,
		eventPublisher: eventPublisher,
		logger:         logger,
		config:         config,
	}
}

// Name returns the job name.
func (j *SyncSubscriptionsJob) Name() string {
	return "sync_subscriptions"
}

// Description returns a human-readable description.
func (j *SyncSubscriptionsJob) Description() string {
	return "Reconciles expiring subscriptions against the billing provider"
}

// Run executes the sweep.
func (j *SyncSubscriptionsJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &SubscriptionSyncStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	cutoff := time.Now().UTC().Add(j.config.Lookahead)
	subs, err := j.subRepo.ListExpiring(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("subscription sweep: failed to list expiring: %w", err)
	}

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}

		stats.Checked++
		if err := j.reconcile(ctx, sub, stats); err != nil {
			stats.Errors++
			j.logger.Error("subscription reconcile failed",
				"subscription_id", sub.StripeSubscriptionID,
				"error", err,
			)
		}
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("subscription sweep finished",
		"checked", stats.Checked,
		"renewed", stats.Renewed,
		"lapsed", stats.Lapsed,
		"errors", stats.Errors,
		"duration", stats.Duration,
	)
	return nil
}

func (j *SyncSubscriptionsJob) reconcile(ctx context.Context, sub *billing.Subscription, stats *SubscriptionSyncStats) error {
	provider, err := j.fetcher.FetchSubscription(ctx, sub.StripeSubscriptionID)
	if err != nil {
		return err
	}

	switch provider.Status {
	case "active", "trialing":
		// Renewed: take the new period end.
		if err := sub.Sync(billing.StatusActive, provider.PlanType(), provider.CurrentPeriodEnd); err != nil {
			return err
		}
		if err := j.subRepo.Upsert(ctx, sub); err != nil {
			return err
		}
		stats.Renewed++
		return nil

	case "past_due", "unpaid", "incomplete":
		if err := sub.Sync(billing.StatusPastDue, provider.PlanType(), provider.CurrentPeriodEnd); err != nil {
			return err
		}
		if err := j.subRepo.Upsert(ctx, sub); err != nil {
			return err
		}
		return j.markProfilePastDue(ctx, sub.UserID)

	default:
		// Canceled at the provider without a webhook reaching us.
		sub.Cancel()
		if err := j.subRepo.Upsert(ctx, sub); err != nil {
			return err
		}
		stats.Lapsed++
		return j.cancelProfile(ctx, sub)
	}
}

func (j *SyncSubscriptionsJob) markProfilePastDue(ctx context.Context, userID string) error {
	p, err := j.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	p.MarkPastDue()
	return j.profileRepo.Update(ctx, p)
}

func (j *SyncSubscriptionsJob) cancelProfile(ctx context.Context, sub *billing.Subscription) error {
	p, err := j.profileRepo.GetByID(ctx, sub.UserID)
	if err != nil {
		return err
	}
	p.CancelSubscription()
	if err := j.profileRepo.Update(ctx, p); err != nil {
		return err
	}
	if j.eventPublisher != nil {
		_ = j.eventPublisher.Publish(shared.NewSubscriptionCanceledEvent(p.ID, sub.StripeSubscriptionID))
	}
	return nil
}

// LastRunStats returns the stats of the most recent sweep, or nil.
func (j *SyncSubscriptionsJob) LastRunStats() *SubscriptionSyncStats {
	stats, _ := j.lastRunStats.Load().(*SubscriptionSyncStats)
	return stats
}
