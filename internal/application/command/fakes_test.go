package command

import (
	"context"
	"sync"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/billing"
	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY FAKES
// Shared by the command handler tests.
// ══════════════════════════════════════════════════════════════════════════════

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*profile.Profile
}

func newFakeProfileRepo(seed ...*profile.Profile) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: make(map[string]*profile.Profile)}
	for _, p := range seed {
		r.profiles[p.ID] = p.Clone()
	}
	return r
}

func (r *fakeProfileRepo) Create(ctx context.Context, p *profile.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.profiles {
		if existing.Email == p.Email {
			return shared.ErrProfileAlreadyExists
		}
	}
	r.profiles[p.ID] = p.Clone()
	return nil
}

func (r *fakeProfileRepo) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	return p.Clone(), nil
}

func (r *fakeProfileRepo) GetByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.Email == email {
			return p.Clone(), nil
		}
	}
	return nil, shared.ErrProfileNotFound
}

func (r *fakeProfileRepo) GetByCustomerID(ctx context.Context, customerID string) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.StripeCustomerID == customerID && customerID != "" {
			return p.Clone(), nil
		}
	}
	return nil, shared.ErrProfileNotFound
}

func (r *fakeProfileRepo) Update(ctx context.Context, p *profile.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.ID]; !ok {
		return shared.ErrProfileNotFound
	}
	r.profiles[p.ID] = p.Clone()
	return nil
}

func (r *fakeProfileRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[id]; !ok {
		return shared.ErrProfileNotFound
	}
	delete(r.profiles, id)
	return nil
}

func (r *fakeProfileRepo) GetAll(ctx context.Context, opts profile.ListOptions) ([]*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*profile.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (r *fakeProfileRepo) GetByRole(ctx context.Context, role profile.Role, opts profile.ListOptions) ([]*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*profile.Profile
	for _, p := range r.profiles {
		if p.Role == role {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (r *fakeProfileRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.profiles), nil
}

func (r *fakeProfileRepo) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.profiles[id]
	return ok, nil
}

func (r *fakeProfileRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// ─────────────────────────────────────────────────────────────────────────────

type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[string]*billing.Subscription // keyed by provider subscription ID
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[string]*billing.Subscription)}
}

func (r *fakeSubscriptionRepo) Upsert(ctx context.Context, sub *billing.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	r.subs[sub.StripeSubscriptionID] = &cp
	return nil
}

func (r *fakeSubscriptionRepo) GetByUserID(ctx context.Context, userID string) (*billing.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.UserID == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, billing.ErrSubscriptionNotFound
}

func (r *fakeSubscriptionRepo) GetByProviderID(ctx context.Context, stripeSubscriptionID string) (*billing.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[stripeSubscriptionID]
	if !ok {
		return nil, billing.ErrSubscriptionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSubscriptionRepo) ListExpiring(ctx context.Context, cutoff time.Time) ([]*billing.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Subscription
	for _, s := range r.subs {
		if s.Status == billing.StatusActive && s.CurrentPeriodEnd.Before(cutoff) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────

type fakeEventLog struct {
	mu        sync.Mutex
	processed map[string]string // event ID -> event type
}

func newFakeEventLog() *fakeEventLog {
	return &fakeEventLog{processed: make(map[string]string)}
}

func (l *fakeEventLog) MarkProcessed(ctx context.Context, eventID, eventType string, processedAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.processed[eventID]; ok {
		return billing.ErrEventAlreadyProcessed
	}
	l.processed[eventID] = eventType
	return nil
}

func (l *fakeEventLog) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.processed[eventID]
	return ok, nil
}

func (l *fakeEventLog) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

// ─────────────────────────────────────────────────────────────────────────────

// fakeUnitOfWork routes the transactional writes back to the fakes. There
// is no rollback: tests assert on the happy path and on early returns
// before any write happened.
type fakeUnitOfWork struct {
	profiles *fakeProfileRepo
	subs     *fakeSubscriptionRepo
	eventLog *fakeEventLog
}

func (u *fakeUnitOfWork) Reconcile(ctx context.Context, fn func(tx billing.ReconcileTx) error) error {
	return fn(&fakeReconcileTx{u: u})
}

type fakeReconcileTx struct {
	u *fakeUnitOfWork
}

func (t *fakeReconcileTx) UpdateProfile(ctx context.Context, p *profile.Profile) error {
	return t.u.profiles.Update(ctx, p)
}

func (t *fakeReconcileTx) UpsertSubscription(ctx context.Context, sub *billing.Subscription) error {
	return t.u.subs.Upsert(ctx, sub)
}

func (t *fakeReconcileTx) MarkEventProcessed(ctx context.Context, eventID, eventType string, processedAt time.Time) error {
	return t.u.eventLog.MarkProcessed(ctx, eventID, eventType, processedAt)
}

// ─────────────────────────────────────────────────────────────────────────────

type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) published() []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.Event, len(p.events))
	copy(out, p.events)
	return out
}
