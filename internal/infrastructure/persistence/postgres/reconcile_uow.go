package postgres

import (
	"context"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/billing"
	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILE UNIT OF WORK
// Bundles the profile update, subscription upsert and processed-event
// mark of one webhook event into a single transaction.
// ══════════════════════════════════════════════════════════════════════════════

// ReconcileUnitOfWork implements billing.UnitOfWork on a pgx transaction.
type ReconcileUnitOfWork struct {
	conn     *Connection
	profiles *ProfileRepository
	subs     *SubscriptionRepository
	eventLog *BillingEventLog
}

// NewReconcileUnitOfWork creates a new ReconcileUnitOfWork.
func NewReconcileUnitOfWork(
	conn *Connection,
	profiles *ProfileRepository,
	subs *SubscriptionRepository,
	eventLog *BillingEventLog,
) *ReconcileUnitOfWork {
	return &ReconcileUnitOfWork{
		conn:     conn,
		profiles: profiles,
		subs:     subs,
		eventLog: eventLog,
	}
}

// Reconcile runs fn inside a transaction. Any error rolls everything back.
func (u *ReconcileUnitOfWork) Reconcile(ctx context.Context, fn func(tx billing.ReconcileTx) error) error {
	return u.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return fn(&reconcileTx{uow: u, tx: tx})
	})
}

type reconcileTx struct {
	uow *ReconcileUnitOfWork
	tx  pgx.Tx
}

func (t *reconcileTx) UpdateProfile(ctx context.Context, p *profile.Profile) error {
	return t.uow.profiles.UpdateTx(ctx, t.tx, p)
}

func (t *reconcileTx) UpsertSubscription(ctx context.Context, sub *billing.Subscription) error {
	return t.uow.subs.UpsertTx(ctx, t.tx, sub)
}

func (t *reconcileTx) MarkEventProcessed(ctx context.Context, eventID, eventType string, processedAt time.Time) error {
	return t.uow.eventLog.MarkProcessedTx(ctx, t.tx, eventID, eventType, processedAt)
}
