// Package postgres implements the PostgreSQL persistence layer for Catalyst Hub.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/billing"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBSCRIPTION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SubscriptionRepository implements billing.Repository for PostgreSQL.
type SubscriptionRepository struct {
	conn *Connection
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(conn *Connection) *SubscriptionRepository {
	return &SubscriptionRepository{conn: conn}
}

const subscriptionColumns = `
	id, user_id, stripe_subscription_id, stripe_customer_id,
	status, plan_type, current_period_end, created_at, updated_at
`

// Upsert inserts or updates the record keyed by the provider subscription ID.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *billing.Subscription) error {
	return r.upsertWith(ctx, r.conn, sub)
}

// UpsertTx performs the upsert inside an existing transaction.
func (r *SubscriptionRepository) UpsertTx(ctx context.Context, tx pgx.Tx, sub *billing.Subscription) error {
	return r.upsertWith(ctx, tx, sub)
}

func (r *SubscriptionRepository) upsertWith(ctx context.Context, q Querier, sub *billing.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, user_id, stripe_subscription_id, stripe_customer_id,
			status, plan_type, current_period_end, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (stripe_subscription_id) DO UPDATE SET
			status = EXCLUDED.status,
			plan_type = EXCLUDED.plan_type,
			current_period_end = EXCLUDED.current_period_end,
			updated_at = EXCLUDED.updated_at
	`

	_, err := q.Exec(ctx, query,
		sub.ID,
		sub.UserID,
		sub.StripeSubscriptionID,
		sub.StripeCustomerID,
		string(sub.Status),
		string(sub.PlanType),
		nullTime(sub.CurrentPeriodEnd),
		sub.CreatedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return nil
}

// GetByUserID returns the user's current subscription.
func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID string) (*billing.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`
	row := r.conn.QueryRow(ctx, query, userID)
	return r.scanSubscription(row)
}

// GetByProviderID returns the record for a provider subscription ID.
func (r *SubscriptionRepository) GetByProviderID(ctx context.Context, stripeSubscriptionID string) (*billing.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE stripe_subscription_id = $1`
	row := r.conn.QueryRow(ctx, query, stripeSubscriptionID)
	return r.scanSubscription(row)
}

// ListExpiring returns active subscriptions whose period ends before the cutoff.
func (r *SubscriptionRepository) ListExpiring(ctx context.Context, cutoff time.Time) ([]*billing.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status = 'active' AND current_period_end IS NOT NULL AND current_period_end < $1
		ORDER BY current_period_end
	`

	rows, err := r.conn.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*billing.Subscription
	for rows.Next() {
		sub, err := r.scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (r *SubscriptionRepository) scanSubscription(row pgx.Row) (*billing.Subscription, error) {
	var sub billing.Subscription
	var status, planType string
	var periodEnd sql.NullTime

	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.StripeSubscriptionID,
		&sub.StripeCustomerID,
		&status,
		&planType,
		&periodEnd,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, billing.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}

	sub.Status = billing.Status(status)
	sub.PlanType = billing.PlanType(planType)
	sub.CurrentPeriodEnd = periodEnd.Time

	return &sub, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// ══════════════════════════════════════════════════════════════════════════════
// BILLING EVENT LOG IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// BillingEventLog implements billing.EventLog for PostgreSQL.
type BillingEventLog struct {
	conn *Connection
}

// NewBillingEventLog creates a new BillingEventLog.
func NewBillingEventLog(conn *Connection) *BillingEventLog {
	return &BillingEventLog{conn: conn}
}

// MarkProcessed records the event ID.
func (l *BillingEventLog) MarkProcessed(ctx context.Context, eventID string, eventType string, processedAt time.Time) error {
	return l.markProcessedWith(ctx, l.conn, eventID, eventType, processedAt)
}

// MarkProcessedTx records the event ID inside an existing transaction.
// When the transaction commits, the event is durably marked; when it
// rolls back, the event can be retried.
func (l *BillingEventLog) MarkProcessedTx(ctx context.Context, tx pgx.Tx, eventID string, eventType string, processedAt time.Time) error {
	return l.markProcessedWith(ctx, tx, eventID, eventType, processedAt)
}

func (l *BillingEventLog) markProcessedWith(ctx context.Context, q Querier, eventID string, eventType string, processedAt time.Time) error {
	query := `INSERT INTO billing_events (event_id, event_type, processed_at) VALUES ($1, $2, $3)`

	_, err := q.Exec(ctx, query, eventID, eventType, processedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return billing.ErrEventAlreadyProcessed
		}
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

// IsProcessed checks whether the event ID was recorded.
func (l *BillingEventLog) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := l.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM billing_events WHERE event_id = $1)`, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check event log: %w", err)
	}
	return exists, nil
}

// PruneOlderThan deletes log rows older than the cutoff.
func (l *BillingEventLog) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := l.conn.Exec(ctx, `DELETE FROM billing_events WHERE processed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune event log: %w", err)
	}
	return int(result.RowsAffected()), nil
}
