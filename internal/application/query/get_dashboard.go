package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DASHBOARD QUERY
// The home screen: profile header, level bar, radar chart, today's habit
// and toolbox state, assembled from four reads running concurrently.
// ══════════════════════════════════════════════════════════════════════════════

// GetDashboardQuery contains the lookup parameters.
type GetDashboardQuery struct {
	// UserID - whose dashboard.
	UserID string

	// RadarSize - forwarded to the skill matrix, defaulted when zero.
	RadarSize float64
}

// Validate checks the query.
func (q GetDashboardQuery) Validate() error {
	if q.UserID == "" {
		return fmt.Errorf("%w: user_id is required", shared.ErrValidation)
	}
	return nil
}

// DashboardDTO is the assembled home screen payload.
type DashboardDTO struct {
	Profile     *ProfileDTO     `json:"profile"`
	SkillMatrix *SkillMatrixDTO `json:"skill_matrix"`
	Habits      []UserHabitDTO  `json:"habits"`
	Toolbox     []UserToolDTO   `json:"toolbox"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// DashboardCache stores assembled dashboards (implemented with Redis).
type DashboardCache interface {
	// Get fetches a cached dashboard.
	// Returns shared.ErrNotFound on a miss.
	Get(ctx context.Context, userID string) (*DashboardDTO, error)

	// Set stores a dashboard with a TTL.
	Set(ctx context.Context, userID string, dto *DashboardDTO, ttl time.Duration) error
}

// GetDashboardHandler assembles the dashboard.
type GetDashboardHandler struct {
	profiles *GetProfileHandler
	matrix   *GetSkillMatrixHandler
	habits   *ListHabitsHandler
	toolbox  *ListToolboxHandler
	cache    DashboardCache
}

// NewGetDashboardHandler creates a new handler. The cache is optional.
func NewGetDashboardHandler(
	profiles *GetProfileHandler,
	matrix *GetSkillMatrixHandler,
	habits *ListHabitsHandler,
	toolbox *ListToolboxHandler,
	cache DashboardCache,
) *GetDashboardHandler {
	return &GetDashboardHandler{
		profiles: profiles,
		matrix:   matrix,
		habits:   habits,
		toolbox:  toolbox,
		cache:    cache,
	}
}

// Handle assembles the dashboard. The four reads run concurrently and
// fail as a unit: a stale or partial dashboard is worse than an error
// the client can retry.
func (h *GetDashboardHandler) Handle(ctx context.Context, q GetDashboardQuery) (*DashboardDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if h.cache != nil {
		if dto, err := h.cache.Get(ctx, q.UserID); err == nil {
			return dto, nil
		}
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		firstEr error

		profileDTO *ProfileDTO
		matrixDTO  *SkillMatrixDTO
		habitDTOs  []UserHabitDTO
		toolDTOs   []UserToolDTO
	)

	fail := func(err error) {
		mu.Lock()
		if firstEr == nil {
			firstEr = err
		}
		mu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		dto, err := h.profiles.Handle(ctx, GetProfileQuery{UserID: q.UserID})
		if err != nil {
			fail(err)
			return
		}
		profileDTO = dto
	}()
	go func() {
		defer wg.Done()
		dto, err := h.matrix.Handle(ctx, GetSkillMatrixQuery{UserID: q.UserID, RadarSize: q.RadarSize})
		if err != nil {
			fail(err)
			return
		}
		matrixDTO = dto
	}()
	go func() {
		defer wg.Done()
		dtos, err := h.habits.Handle(ctx, ListHabitsQuery{UserID: q.UserID})
		if err != nil {
			fail(err)
			return
		}
		habitDTOs = dtos
	}()
	go func() {
		defer wg.Done()
		dtos, err := h.toolbox.Handle(ctx, ListToolboxQuery{UserID: q.UserID})
		if err != nil {
			fail(err)
			return
		}
		toolDTOs = dtos
	}()
	wg.Wait()

	if firstEr != nil {
		return nil, firstEr
	}

	dto := &DashboardDTO{
		Profile:     profileDTO,
		SkillMatrix: matrixDTO,
		Habits:      habitDTOs,
		Toolbox:     toolDTOs,
		GeneratedAt: time.Now().UTC(),
	}

	if h.cache != nil {
		_ = h.cache.Set(ctx, q.UserID, dto, 0)
	}
	return dto, nil
}
