package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/billing"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRUNE BILLING EVENTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// PruneBillingEventsJob deletes old rows from the processed-webhook log.
// Stripe retries deliveries for days, not months, so rows past the
// retention window can never dedupe anything again.
type PruneBillingEventsJob struct {
	eventLog  billing.EventLog
	logger    *slog.Logger
	retention time.Duration
}

// NewPruneBillingEventsJob creates a new prune job. A non-positive
// retention defaults to 30 days.
func NewPruneBillingEventsJob(eventLog billing.EventLog, logger *slog.Logger, retention time.Duration) *PruneBillingEventsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &PruneBillingEventsJob{eventLog: eventLog, logger: logger, retention: retention}
}

// Name returns the job name.
func (j *PruneBillingEventsJob) Name() string {
	return "prune_billing_events"
}

// Description returns a human-readable description.
func (j *PruneBillingEventsJob) Description() string {
	return "Deletes processed webhook event records past the retention window"
}

// Run executes the prune.
func (j *PruneBillingEventsJob) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-j.retention)

	deleted, err := j.eventLog.PruneOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune billing events: %w", err)
	}

	j.logger.Info("billing event log pruned",
		"deleted", deleted,
		"cutoff", cutoff,
	)
	return nil
}
