package http

import (
	"context"
	"sync"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/application/command"
	"github.com/human-catalyst/catalyst-hub/internal/domain/billing"
	"github.com/human-catalyst/catalyst-hub/internal/domain/mastery"
	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
	"github.com/human-catalyst/catalyst-hub/internal/domain/skill"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY FAKES
// Shared by the handler tests. The server is exercised through its real
// middleware chain; only the persistence edges are faked.
// ══════════════════════════════════════════════════════════════════════════════

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*profile.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*profile.Profile)}
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
// Session store
// ─────────────────────────────────────────────────────────────────────────────

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]profile.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]profile.Session)}
}

func (s *fakeSessionStore) Save(ctx context.Context, session profile.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = session
	return nil
}

func (s *fakeSessionStore) Get(ctx context.Context, token string) (profile.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return profile.Session{}, shared.ErrSessionNotFound
	}
	return session, nil
}

func (s *fakeSessionStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *fakeSessionStore) DeleteAllForUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, token)
		}
	}
	return nil
}

func (s *fakeSessionStore) Touch(ctx context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return shared.ErrSessionNotFound
	}
	session.ExpiresAt = time.Now().Add(ttl)
	s.sessions[token] = session
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Mastery library and trackers
// ─────────────────────────────────────────────────────────────────────────────

type fakeLibrary struct {
	habits map[string]mastery.HabitDefinition
	tools  map[string]mastery.ToolDefinition
}

func (l *fakeLibrary) ListHabitDefinitions(ctx context.Context) ([]mastery.HabitDefinition, error) {
	out := make([]mastery.HabitDefinition, 0, len(l.habits))
	for _, d := range l.habits {
		out = append(out, d)
	}
	return out, nil
}

func (l *fakeLibrary) GetHabitDefinition(ctx context.Context, habitID string) (*mastery.HabitDefinition, error) {
	d, ok := l.habits[habitID]
	if !ok {
		return nil, mastery.ErrHabitNotFound
	}
	return &d, nil
}

func (l *fakeLibrary) ListToolDefinitions(ctx context.Context) ([]mastery.ToolDefinition, error) {
	out := make([]mastery.ToolDefinition, 0, len(l.tools))
	for _, d := range l.tools {
		out = append(out, d)
	}
	return out, nil
}

func (l *fakeLibrary) GetToolDefinition(ctx context.Context, toolID string) (*mastery.ToolDefinition, error) {
	d, ok := l.tools[toolID]
	if !ok {
		return nil, mastery.ErrToolNotFound
	}
	return &d, nil
}

type fakeHabitRepo struct {
	mu          sync.Mutex
	habits      map[string]*mastery.UserHabit
	completions map[string][]time.Time
}

func newFakeHabitRepo() *fakeHabitRepo {
	return &fakeHabitRepo{
		habits:      make(map[string]*mastery.UserHabit),
		completions: make(map[string][]time.Time),
	}
}

func (r *fakeHabitRepo) CreateUserHabit(ctx context.Context, habit *mastery.UserHabit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.habits {
		if h.UserID == habit.UserID && h.HabitID == habit.HabitID {
			return mastery.ErrHabitAlreadyAdopted
		}
	}
	clone := *habit
	r.habits[habit.ID] = &clone
	return nil
}

func (r *fakeHabitRepo) GetUserHabit(ctx context.Context, userHabitID string) (*mastery.UserHabit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.habits[userHabitID]
	if !ok {
		return nil, mastery.ErrHabitNotFound
	}
	clone := *h
	return &clone, nil
}

func (r *fakeHabitRepo) ListUserHabits(ctx context.Context, userID string) ([]*mastery.UserHabit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*mastery.UserHabit
	for _, h := range r.habits {
		if h.UserID == userID {
			clone := *h
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeHabitRepo) UpdateUserHabit(ctx context.Context, habit *mastery.UserHabit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.habits[habit.ID]; !ok {
		return mastery.ErrHabitNotFound
	}
	clone := *habit
	r.habits[habit.ID] = &clone
	return nil
}

func (r *fakeHabitRepo) DeleteUserHabit(ctx context.Context, userHabitID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.habits, userHabitID)
	delete(r.completions, userHabitID)
	return nil
}

func (r *fakeHabitRepo) RecordCompletion(ctx context.Context, completion *mastery.HabitCompletion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	day := completion.CompletedAt.UTC().Truncate(24 * time.Hour)
	for _, at := range r.completions[completion.UserHabitID] {
		if at.UTC().Truncate(24*time.Hour) == day {
			return mastery.ErrAlreadyCompletedToday
		}
	}
	r.completions[completion.UserHabitID] = append(r.completions[completion.UserHabitID], completion.CompletedAt)
	return nil
}

func (r *fakeHabitRepo) DeleteCompletion(ctx context.Context, userHabitID string, day time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target := day.UTC().Truncate(24 * time.Hour)
	kept := r.completions[userHabitID][:0]
	for _, at := range r.completions[userHabitID] {
		if at.UTC().Truncate(24*time.Hour) != target {
			kept = append(kept, at)
		}
	}
	r.completions[userHabitID] = kept
	return nil
}

func (r *fakeHabitRepo) ListCompletions(ctx context.Context, userHabitID string, from, to time.Time) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Time
	for _, at := range r.completions[userHabitID] {
		if !at.Before(from) && !at.After(to) {
			out = append(out, at)
		}
	}
	return out, nil
}

func (r *fakeHabitRepo) ListActiveHabitIDs(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for id, h := range r.habits {
		if h.Active {
			out = append(out, id)
		}
	}
	return out, nil
}

type fakeToolboxRepo struct {
	mu     sync.Mutex
	tools  map[string]*mastery.UserTool
	usages map[string][]time.Time
}

func newFakeToolboxRepo() *fakeToolboxRepo {
	return &fakeToolboxRepo{
		tools:  make(map[string]*mastery.UserTool),
		usages: make(map[string][]time.Time),
	}
}

func (r *fakeToolboxRepo) CreateUserTool(ctx context.Context, tool *mastery.UserTool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tools {
		if t.UserID == tool.UserID && t.ToolID == tool.ToolID {
			return mastery.ErrToolAlreadyAdded
		}
	}
	clone := *tool
	r.tools[tool.ID] = &clone
	return nil
}

func (r *fakeToolboxRepo) GetUserTool(ctx context.Context, userToolID string) (*mastery.UserTool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tools[userToolID]
	if !ok {
		return nil, mastery.ErrToolNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *fakeToolboxRepo) ListUserTools(ctx context.Context, userID string) ([]*mastery.UserTool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*mastery.UserTool
	for _, t := range r.tools {
		if t.UserID == userID {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeToolboxRepo) UpdateUserTool(ctx context.Context, tool *mastery.UserTool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[tool.ID]; !ok {
		return mastery.ErrToolNotFound
	}
	clone := *tool
	r.tools[tool.ID] = &clone
	return nil
}

func (r *fakeToolboxRepo) DeleteUserTool(ctx context.Context, userToolID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, userToolID)
	delete(r.usages, userToolID)
	return nil
}

func (r *fakeToolboxRepo) RecordUsage(ctx context.Context, usage *mastery.ToolUsage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usages[usage.UserToolID] = append(r.usages[usage.UserToolID], usage.UsedAt)
	return nil
}

func (r *fakeToolboxRepo) ListUsages(ctx context.Context, userToolID string, from, to time.Time) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Time
	for _, at := range r.usages[userToolID] {
		if !at.Before(from) && !at.After(to) {
			out = append(out, at)
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Skill progress and levels
// ─────────────────────────────────────────────────────────────────────────────

type fakeProgressRepo struct {
	mu           sync.Mutex
	points       map[string]map[string]float64
	transactions []skill.XPTransaction
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{points: make(map[string]map[string]float64)}
}

func (r *fakeProgressRepo) ListUserSkills(ctx context.Context, userID string) ([]skill.UserSkill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []skill.UserSkill
	for skillID, pts := range r.points[userID] {
		out = append(out, skill.UserSkill{UserID: userID, SkillID: skillID, PointsEarned: pts})
	}
	return out, nil
}

func (r *fakeProgressRepo) AddPoints(ctx context.Context, userID, skillID string, points float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.points[userID] == nil {
		r.points[userID] = make(map[string]float64)
	}
	r.points[userID][skillID] += points
	return nil
}

func (r *fakeProgressRepo) RecordXPTransaction(ctx context.Context, tx skill.XPTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = append(r.transactions, tx)
	return nil
}

func (r *fakeProgressRepo) ListXPTransactions(ctx context.Context, userID string, limit int) ([]skill.XPTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []skill.XPTransaction
	for i := len(r.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		if r.transactions[i].UserID == userID {
			out = append(out, r.transactions[i])
		}
	}
	return out, nil
}

type fakeCatalogRepo struct {
	stats  []skill.MasterStat
	skills []skill.Skill
	levels []skill.Level
}

func (r *fakeCatalogRepo) ListMasterStats(ctx context.Context) ([]skill.MasterStat, error) {
	return r.stats, nil
}

func (r *fakeCatalogRepo) ListSkills(ctx context.Context) ([]skill.Skill, error) {
	return r.skills, nil
}

func (r *fakeCatalogRepo) GetSkill(ctx context.Context, skillID string) (*skill.Skill, error) {
	for _, s := range r.skills {
		if s.ID == skillID {
			return &s, nil
		}
	}
	return nil, skill.ErrSkillNotFound
}

func (r *fakeCatalogRepo) ListLevels(ctx context.Context) ([]skill.Level, error) {
	return r.levels, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Events and billing
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

type fakeEventLog struct {
	mu        sync.Mutex
	processed map[string]string
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

type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[string]*billing.Subscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[string]*billing.Subscription)}
}

func (r *fakeSubscriptionRepo) Upsert(ctx context.Context, sub *billing.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *sub
	r.subs[sub.StripeSubscriptionID] = &clone
	return nil
}

func (r *fakeSubscriptionRepo) GetByUserID(ctx context.Context, userID string) (*billing.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if sub.UserID == userID {
			clone := *sub
			return &clone, nil
		}
	}
	return nil, billing.ErrSubscriptionNotFound
}

func (r *fakeSubscriptionRepo) GetByProviderID(ctx context.Context, stripeSubscriptionID string) (*billing.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[stripeSubscriptionID]
	if !ok {
		return nil, billing.ErrSubscriptionNotFound
	}
	clone := *sub
	return &clone, nil
}

func (r *fakeSubscriptionRepo) ListExpiring(ctx context.Context, cutoff time.Time) ([]*billing.Subscription, error) {
	return nil, nil
}

// fakeBillingGateway answers checkout calls with a canned session. The
// confirm leg returns the same session so a handler test can walk the
// full start-then-confirm flow.
type fakeBillingGateway struct {
	mu      sync.Mutex
	session *command.CheckoutSessionData
}

func (g *fakeBillingGateway) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	return "cus_test", nil
}

func (g *fakeBillingGateway) CreateCheckoutSession(ctx context.Context, customerID, userID string, tier billing.Tier, cadence billing.PlanType) (*command.CheckoutSessionData, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.session = &command.CheckoutSessionData{
		SessionID:      "cs_test",
		URL:            "https://checkout.example.com/cs_test",
		CustomerID:     customerID,
		SubscriptionID: "sub_test",
		PaymentStatus:  "paid",
		UserID:         userID,
		PlanTag:        string(tier),
		Cadence:        string(cadence),
	}
	return g.session, nil
}

func (g *fakeBillingGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*command.CheckoutSessionData, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil || g.session.SessionID != sessionID {
		return nil, shared.ErrNotFound
	}
	return g.session, nil
}

func (g *fakeBillingGateway) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	return "https://portal.example.com/" + customerID, nil
}

type fakeWebhookDecoder struct {
	event billing.Event
	err   error
}

func (d *fakeWebhookDecoder) Decode(payload []byte, signatureHeader string) (billing.Event, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.event, nil
}
