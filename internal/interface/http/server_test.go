package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/human-catalyst/catalyst-hub/internal/application/command"
	"github.com/human-catalyst/catalyst-hub/internal/application/query"
	"github.com/human-catalyst/catalyst-hub/internal/domain/billing"
	"github.com/human-catalyst/catalyst-hub/internal/domain/mastery"
	"github.com/human-catalyst/catalyst-hub/internal/domain/skill"
	"github.com/human-catalyst/catalyst-hub/internal/interface/http/handlers"
	"github.com/human-catalyst/catalyst-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST HARNESS
// A full server over in-memory fakes. Requests run through the real
// middleware chain and real command/query handlers; only persistence and
// the webhook decoder are faked.
// ══════════════════════════════════════════════════════════════════════════════

const (
	habitPushupsID  = "habit-pushups"
	habitDeepWorkID = "habit-deep-work"
	toolJournalID   = "tool-journal"
)

type testEnv struct {
	server    *Server
	profiles  *fakeProfileRepo
	sessions  *fakeSessionStore
	habits    *fakeHabitRepo
	toolbox   *fakeToolboxRepo
	progress  *fakeProgressRepo
	subs      *fakeSubscriptionRepo
	gateway   *fakeBillingGateway
	eventLog  *fakeEventLog
	publisher *capturingPublisher
	decoder   *fakeWebhookDecoder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		profiles:  newFakeProfileRepo(),
		sessions:  newFakeSessionStore(),
		habits:    newFakeHabitRepo(),
		toolbox:   newFakeToolboxRepo(),
		progress:  newFakeProgressRepo(),
		subs:      newFakeSubscriptionRepo(),
		gateway:   &fakeBillingGateway{},
		eventLog:  newFakeEventLog(),
		publisher: &capturingPublisher{},
		decoder:   &fakeWebhookDecoder{},
	}

	library := &fakeLibrary{
		habits: map[string]mastery.HabitDefinition{
			habitPushupsID: {
				ID:       habitPushupsID,
				Name:     "Morning pushups",
				Category: "body",
				XPReward: 10,
				SkillIDs: []string{"skill-strength"},
			},
			habitDeepWorkID: {
				ID:       habitDeepWorkID,
				Name:     "Deep work block",
				Category: "mind",
				XPReward: 150,
				SkillIDs: []string{"skill-focus"},
			},
		},
		tools: map[string]mastery.ToolDefinition{
			toolJournalID: {
				ID:       toolJournalID,
				Name:     "Evening journal",
				Category: "mind",
				XPReward: 5,
				SkillIDs: []string{"skill-reflection"},
			},
		},
	}

	catalog := query.NewCatalogService(&fakeCatalogRepo{
		stats: []skill.MasterStat{
			{ID: "stat-body", Name: "Body", SortOrder: 1},
			{ID: "stat-mind", Name: "Mind", SortOrder: 2},
		},
		skills: []skill.Skill{
			{ID: "skill-strength", MasterStatID: "stat-body", Name: "Strength"},
			{ID: "skill-focus", MasterStatID: "stat-mind", Name: "Focus"},
			{ID: "skill-reflection", MasterStatID: "stat-mind", Name: "Reflection"},
		},
		levels: []skill.Level{
			{LevelNumber: 1, XPThreshold: 0, Title: "Novice"},
			{LevelNumber: 2, XPThreshold: 100, Title: "Apprentice"},
		},
	}, nil)

	awardXP := command.NewAwardXPHandler(env.profiles, env.progress, catalog, env.publisher)
	ensureCustomer := command.NewEnsureCustomerHandler(env.profiles, env.gateway)

	getProfile := query.NewGetProfileHandler(env.profiles, nil)
	skillMatrix := query.NewGetSkillMatrixHandler(catalog, env.progress)
	listHabits := query.NewListHabitsHandler(library, env.habits)
	listToolbox := query.NewListToolboxHandler(library, env.toolbox)

	deps := Dependencies{
		RegisterUserHandler:     command.NewRegisterUserHandler(env.profiles, env.sessions, env.publisher, time.Hour),
		AuthenticateHandler:     command.NewAuthenticateHandler(env.profiles, env.sessions, time.Hour),
		LogoutHandler:           command.NewLogoutHandler(env.sessions),
		UpdateProfileHandler:    command.NewUpdateProfileHandler(env.profiles, nil),
		AdoptHabitHandler:       command.NewAdoptHabitHandler(library, env.habits),
		ArchiveHabitHandler:     command.NewArchiveHabitHandler(env.habits),
		CompleteHabitHandler:    command.NewCompleteHabitHandler(env.habits, awardXP, env.publisher),
		AddToolHandler:          command.NewAddToolHandler(library, env.toolbox),
		UseToolHandler:          command.NewUseToolHandler(env.toolbox, awardXP, env.publisher),
		ReconcileBillingHandler: command.NewReconcileBillingEventHandler(env.profiles, nil, env.eventLog, nil, env.publisher, nil),
		EnsureCustomerHandler:   ensureCustomer,
		StartCheckoutHandler:    command.NewStartCheckoutHandler(ensureCustomer, env.gateway),
		ConfirmCheckoutHandler:  command.NewConfirmCheckoutHandler(env.profiles, env.subs, env.gateway, env.publisher),
		OpenPortalHandler:       command.NewOpenPortalHandler(env.profiles, env.gateway),

		GetProfileHandler:       getProfile,
		GetDashboardHandler:     query.NewGetDashboardHandler(getProfile, skillMatrix, listHabits, listToolbox, nil),
		GetSkillMatrixHandler:   skillMatrix,
		GetLevelProgressHandler: query.NewGetLevelProgressHandler(env.profiles, catalog),
		ListHabitsHandler:       listHabits,
		ListToolboxHandler:      listToolbox,

		Sessions:       env.sessions,
		WebhookDecoder: env.decoder,
		Logger:         logger.New(logger.Options{Output: io.Discard}),
		HealthChecker:  handlers.NewNoopHealthChecker(),
	}

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	cfg.EnableMetrics = false
	cfg.SessionTTL = time.Hour

	env.server = NewServer(cfg, deps)
	return env
}

// do runs one request through the full middleware chain.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, "http://test"+path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.server.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		TotalCount *int `json:"total_count"`
	} `json:"meta"`
}

// decodeEnvelope parses the standard response envelope and optionally its
// data payload.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) testEnvelope {
	t.Helper()

	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	if dst != nil {
		require.NotNil(t, env.Data, "body: %s", rec.Body.String())
		require.NoError(t, json.Unmarshal(env.Data, dst))
	}
	return env
}

// assertError checks the status code and the machine-readable error code.
func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	assert.Equal(t, status, rec.Code, "body: %s", rec.Body.String())
	env := decodeEnvelope(t, rec, nil)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, code, env.Error.Code)
}

type sessionPayload struct {
	Profile struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
		Level       int    `json:"level"`
	} `json:"profile"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// register creates an account through the API and returns the session.
func register(t *testing.T, env *testEnv, email string) sessionPayload {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	var session sessionPayload
	decodeEnvelope(t, rec, &session)
	require.NotEmpty(t, session.SessionToken)
	return session
}

// adoptHabit adds a library habit through the API and returns the tracker DTO.
func adoptHabit(t *testing.T, env *testEnv, token, habitID string) query.UserHabitDTO {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/api/v1/habits", token, map[string]string{"habit_id": habitID})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	var habit query.UserHabitDTO
	decodeEnvelope(t, rec, &habit)
	return habit
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH
// ══════════════════════════════════════════════════════════════════════════════

func TestRegister_CreatesProfileAndSession(t *testing.T) {
	env := newTestEnv(t)

	session := register(t, env, "casey@example.com")

	assert.Equal(t, "casey@example.com", session.Profile.Email)
	assert.Equal(t, "casey", session.Profile.DisplayName)
	assert.Equal(t, 1, session.Profile.Level)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	stored, err := env.sessions.Get(context.Background(), session.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, session.Profile.ID, stored.UserID)
}

func TestRegister_ShortPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "casey@example.com",
		"password": "short",
	})

	assertError(t, rec, http.StatusBadRequest, "invalid_request")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "casey@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "casey@example.com",
		"password": "correct horse battery",
	})

	assertError(t, rec, http.StatusConflict, "already_exists")
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "casey@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "casey@example.com",
		"password": "not the password",
	})

	assertError(t, rec, http.StatusUnauthorized, "invalid_credentials")
}

func TestLogin_OpensFreshSession(t *testing.T) {
	env := newTestEnv(t)
	registered := register(t, env, "casey@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "casey@example.com",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var session sessionPayload
	decodeEnvelope(t, rec, &session)
	assert.NotEmpty(t, session.SessionToken)
	assert.NotEqual(t, registered.SessionToken, session.SessionToken)
	assert.Equal(t, registered.Profile.ID, session.Profile.ID)
}

func TestLogout_RevokesSession(t *testing.T) {
	env := newTestEnv(t)
	session := register(t, env, "casey@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/auth/logout", session.SessionToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/me", session.SessionToken, nil)
	assertError(t, rec, http.StatusUnauthorized, "unauthorized")
}

func TestAuthenticated_MissingToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/me", "", nil)

	assertError(t, rec, http.StatusUnauthorized, "unauthorized")
}

func TestAuthenticated_UnknownToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/me", "no-such-token", nil)

	assertError(t, rec, http.StatusUnauthorized, "unauthorized")
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE
// ══════════════════════════════════════════════════════════════════════════════

func TestGetMe(t *testing.T) {
	env := newTestEnv(t)
	session := register(t, env, "casey@example.com")

	rec := env.do(t, http.MethodGet, "/api/v1/me", session.SessionToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile query.ProfileDTO
	decodeEnvelope(t, rec, &profile)
	assert.Equal(t, session.Profile.ID, profile.ID)
	assert.Equal(t, "casey@example.com", profile.Email)
	assert.Equal(t, 1, profile.Level)
	assert.False(t, profile.HasActiveAccess)
}

func TestUpdateMe_ChangesDisplayName(t *testing.T) {
	env := newTestEnv(t)
	session := register(t, env, "casey@example.com")

	rec := env.do(t, http.MethodPatch, "/api/v1/me", session.SessionToken, map[string]string{
		"display_name": "Casey the Catalyst",
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var profile query.ProfileDTO
	decodeEnvelope(t, rec, &profile)
	assert.Equal(t, "Casey the Catalyst", profile.DisplayName)
}

// ══════════════════════════════════════════════════════════════════════════════
// HABITS
// ══════════════════════════════════════════════════════════════════════════════

func TestHabitLibrary(t *testing.T) {
	env := newTestEnv(t)
	session := register(t, env, "casey@example.com")

	rec := env.do(t, http.MethodGet, "/api/v1/library/habits", session.SessionToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Habits []query.HabitDefinitionDTO `json:"habits"`
	}
	decodeEnvelope(t, rec, &payload)
	assert.Len(t, payload.Habits, 2)
}

func TestAdoptHabit(t *testing.T) {
	env := newTestEnv(t)
	session := register(t, env, "casey@example.com")

	habit := adoptHabit(t, env, session.SessionToken, habitPushupsID)

	assert.NotEmpty(t, habit.ID)
	assert.Equal(t, habitPushupsID, habit.HabitID)
	assert.Equal(t, "Morning pushups", habit.Name)
	assert.Equal(t, 10, habit.XPReward)
	assert.True(t, habit.Active)
	assert.False(t, habit.CompletedToday)
	assert.Equal(t, 0, habit.CurrentStreak)
}

func TestAdoptHabit_Twice(t *testing.T) {
	env := newTestEnv(t)
	session := register(t, env, "casey@example.com")
	adoptHabit(t, env, session.SessionToken, habitPushupsID)

	rec := env.do(t, http.MethodPost, "/api/v1/habits", session.SessionToken, map[string]string{
		"habit_id": habitPushupsID,
	})

	assertError(t, rec, http.StatusConflict, "already_exists")
}

func TestAdoptHabit_UnknownDefinition(t *testing.T) {
	env := newTestEnv(t)
	session := register(t, env, "casey@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/habits", session.SessionToken, map[string]string{
		"habit_id": "no-such-habit",
	})

	assertError(t, rec, http.StatusNotFound, "not_found")
}

func TestCompleteHabit_AwardsXP(t *testing.T) {
	env := newTestEnv(t)
	session := register(t, env, "casey@example.com")
	habit := adoptHabit(t, env, session.SessionToken, habitPushupsID)

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/habits/%s/complete", habit.ID), session.SessionToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var result struct {
		Habit     query.UserHabitDTO `json:"habit"`
		XPEarned  int                `json:"xp_earned"`
		Streak    int                `json:"streak"`
		LeveledUp bool               `json:"leveled_up"`
	}
	decodeEnvelope(t, rec, &result)
	assert.Equal(t, 10, result.XPEarned)
	assert.Equal(t, 1, result.Streak)
	assert.False(t, result.LeveledUp)
	assert.True(t, result.Habit.CompletedToday)
	assert.Equal(t, 1, result.Habit.CompletionCount)

	rec = env.do(t, http.MethodGet, "/api/v1/me", session.SessionToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile query.ProfileDTO
	decodeEnvelope(t, rec, &profile)
	assert.Equal(t, 10, profile.TotalXPEarned)
}

func TestCompleteHabit_TwiceSameDay(t *testing.T) {
	env := newTestEnv(t)
	session := register(t, env, "casey@example.com")
	habit := adoptHabit(t, env, session.SessionToken, habitPushupsID)

	path := fmt.Sprintf("/api/v1/habits/%s/complete", habit.ID)
	rec := env.do(t, http.MethodPost, path, session.SessionToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, path, session.SessionToken, nil)
	assertError(t, rec, http.StatusConflict, "already_completed")
}

func TestCompleteHabit_LevelUp(t *testing.T) {
	env := newTestEnv(t)
	session := register(t, env, "casey@example.com")
	habit := adoptHabit(t, env, session.SessionToken, habitDeepWorkID)

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/habits/%s/complete", habit.ID), session.SessionToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var result struct {
		XPEarned  int  `json:"xp_earned"`
		LeveledUp bool `json:"leveled_up"`
	}
	decodeEnvelope(t, rec, &result)
	assert.Equal(t, 150, result.XPEarned)
	assert.True(t, result.LeveledUp)

	rec = env.do(t, http.MethodGet, "/api/v1/me", session.SessionToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile query.ProfileDTO
	decodeEnvelope(t, rec, &profile)
	assert.Equal(t, 2, profile.Level)
}

func TestCompleteHabit_NotOwned(t *testing.T) {
	env := newTestEnv(t)
	owner := register(t, env, "owner@example.com")
	habit := adoptHabit(t, env, owner.SessionToken, habitPushupsID)
	intruder := register(t, env, "intruder@example.com")

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/habits/%s/complete", habit.ID), intruder.SessionToken, nil)

	assertError(t, rec, http.StatusNotFound, "not_found")
}

func TestArchiveHabit_BlocksCompletion(t *testing.T) {
	env := newTestEnv(t)
	session := register(t, env, "casey@example.com")
	habit := adoptHabit(t, env, session.SessionToken, habitPushupsID)

	rec := env.do(t, http.MethodDelete, "/api/v1/habits/"+habit.ID, session.SessionToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/habits/%s/complete", habit.ID), session.SessionToken, nil)
	assertError(t, rec, http.StatusConflict, "habit_inactive")
}

func TestListHabits(t *testing.T) {
	env := newTestEnv(t)
	session := register(t, env, "casey@example.com")
	adoptHabit(t, env, session.SessionToken, habitPushupsID)

	rec := env.do(t, http.MethodGet, "/api/v1/habits", session.SessionToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var habits []query.UserHabitDTO
	resp := decodeEnvelope(t, rec, &habits)
	assert.Len(t, habits, 1)
	require.NotNil(t, resp.Meta)
	require.NotNil(t, resp.Meta.TotalCount)
	assert.Equal(t, 1, *resp.Meta.TotalCount)
}

// ══════════════════════════════════════════════════════════════════════════════
// TOOLBOX
// ══════════════════════════════════════════════════════════════════════════════

func TestAddAndUseTool(t *testing.T) {
	env := newTestEnv(t)
	session := register(t, env, "casey@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/tools", session.SessionToken, map[string]string{
		"tool_id": toolJournalID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	var tool query.UserToolDTO
	decodeEnvelope(t, rec, &tool)
	assert.Equal(t, toolJournalID, tool.ToolID)
	assert.Equal(t, 5, tool.XPReward)
	assert.False(t, tool.UsedToday)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tools/%s/use", tool.ID), session.SessionToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var result struct {
		Tool      query.UserToolDTO `json:"tool"`
		XPEarned  int               `json:"xp_earned"`
		LeveledUp bool              `json:"leveled_up"`
	}
	decodeEnvelope(t, rec, &result)
	assert.Equal(t, 5, result.XPEarned)
	assert.True(t, result.Tool.UsedToday)
	assert.Equal(t, 1, result.Tool.UsageCount)
}

func TestAddTool_UnknownDefinition(t *testing.T) {
	env := newTestEnv(t)
	session := register(t, env, "casey@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/tools", session.SessionToken, map[string]string{
		"tool_id": "no-such-tool",
	})

	assertError(t, rec, http.StatusNotFound, "not_found")
}

// ══════════════════════════════════════════════════════════════════════════════
// BILLING CHECKOUT
// ══════════════════════════════════════════════════════════════════════════════

func TestCheckout_TeacherPlanGrantsTeacherRole(t *testing.T) {
	env := newTestEnv(t)
	session := register(t, env, "casey@example.com")

	rec := env.do(t, http.MethodPost, "/api/create-checkout-session", session.SessionToken, map[string]string{
		"plan": "yearly",
		"tier": "teacher",
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var created struct {
		SessionID   string `json:"session_id"`
		CheckoutURL string `json:"checkout_url"`
	}
	decodeEnvelope(t, rec, &created)
	require.Equal(t, "cs_test", created.SessionID)

	rec = env.do(t, http.MethodGet, "/api/payment-success?session_id=cs_test", session.SessionToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var result struct {
		Paid    bool   `json:"paid"`
		Role    string `json:"role"`
		PlanTag string `json:"plan_type"`
	}
	decodeEnvelope(t, rec, &result)
	assert.True(t, result.Paid)
	assert.Equal(t, "Teacher", result.Role)
	assert.Equal(t, "teacher", result.PlanTag)

	sub, err := env.subs.GetByProviderID(context.Background(), "sub_test")
	require.NoError(t, err)
	assert.Equal(t, billing.PlanYearly, sub.PlanType)
}

func TestPaymentSuccess_ResponseUsesSnakeCaseKeys(t *testing.T) {
	env := newTestEnv(t)
	session := register(t, env, "casey@example.com")

	rec := env.do(t, http.MethodPost, "/api/create-checkout-session", session.SessionToken, map[string]string{
		"plan": "monthly",
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/payment-success?session_id=cs_test", session.SessionToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	fields := map[string]json.RawMessage{}
	decodeEnvelope(t, rec, &fields)
	assert.Contains(t, fields, "paid")
	assert.Contains(t, fields, "role")
	assert.Contains(t, fields, "plan_type")
	assert.NotContains(t, fields, "Paid")
	assert.NotContains(t, fields, "PlanTag")
}

func TestCheckout_RejectsUnknownPlan(t *testing.T) {
	env := newTestEnv(t)
	session := register(t, env, "casey@example.com")

	rec := env.do(t, http.MethodPost, "/api/create-checkout-session", session.SessionToken, map[string]string{
		"plan": "weekly",
	})
	assertError(t, rec, http.StatusBadRequest, "invalid_request")
}

// ══════════════════════════════════════════════════════════════════════════════
// BILLING WEBHOOK
// ══════════════════════════════════════════════════════════════════════════════

func TestWebhook_InvalidSignature(t *testing.T) {
	env := newTestEnv(t)
	env.decoder.err = errors.New("signature mismatch")

	req := httptest.NewRequest(http.MethodPost, "http://test/api/webhook", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "t=0,v1=bad")
	rec := httptest.NewRecorder()
	env.server.httpServer.Handler.ServeHTTP(rec, req)

	assertError(t, rec, http.StatusBadRequest, "invalid_signature")
}

func TestWebhook_UnhandledEventAccepted(t *testing.T) {
	env := newTestEnv(t)
	env.decoder.event = billing.NewUnhandled("evt_123", time.Now(), "customer.created")

	req := httptest.NewRequest(http.MethodPost, "http://test/api/webhook", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "t=0,v1=good")
	rec := httptest.NewRecorder()
	env.server.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	var payload struct {
		Received bool `json:"received"`
	}
	decodeEnvelope(t, rec, &payload)
	assert.True(t, payload.Received)
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}
