package http

import (
	"net/http"

	"github.com/human-catalyst/catalyst-hub/internal/application/command"
	"github.com/human-catalyst/catalyst-hub/internal/application/query"
	"github.com/human-catalyst/catalyst-hub/internal/domain/mastery"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIBRARY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHabitLibrary handles GET /api/v1/library/habits
func (s *Server) handleHabitLibrary(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ListHabitsHandler.Library(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err, "list habit library")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"habits": result})
}

// handleToolLibrary handles GET /api/v1/library/tools
func (s *Server) handleToolLibrary(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ListToolboxHandler.Library(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err, "list tool library")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": result})
}

// ══════════════════════════════════════════════════════════════════════════════
// HABIT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListHabits handles GET /api/v1/habits
func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	q := query.ListHabitsQuery{
		UserID:          userIDFrom(r),
		IncludeArchived: getQueryParamBool(r, "include_archived"),
	}

	result, err := s.deps.ListHabitsHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "list habits")
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, map[string]interface{}{"habits": result},
		&ResponseMeta{TotalCount: len(result)})
}

// adoptHabitRequest is the POST /api/v1/habits payload.
type adoptHabitRequest struct {
	HabitID string `json:"habit_id"`
}

// handleAdoptHabit handles POST /api/v1/habits
func (s *Server) handleAdoptHabit(w http.ResponseWriter, r *http.Request) {
	var req adoptHabitRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.AdoptHabitCommand{
		UserID:  userIDFrom(r),
		HabitID: req.HabitID,
	}

	habit, err := s.deps.AdoptHabitHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "adopt habit")
		return
	}

	writeJSON(w, http.StatusCreated, userHabitJSON(habit, false))
}

// completeHabitResponse is the POST /api/v1/habits/{id}/complete response.
type completeHabitResponse struct {
	Habit     query.UserHabitDTO `json:"habit"`
	XPEarned  int                `json:"xp_earned"`
	Streak    int                `json:"streak"`
	LeveledUp bool               `json:"leveled_up"`
}

// handleCompleteHabit handles POST /api/v1/habits/{id}/complete
func (s *Server) handleCompleteHabit(w http.ResponseWriter, r *http.Request) {
	userHabitID := r.PathValue("id")
	if userHabitID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Habit ID is required")
		return
	}

	cmd := command.CompleteHabitCommand{
		UserID:        userIDFrom(r),
		UserHabitID:   userHabitID,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.CompleteHabitHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "complete habit")
		return
	}

	writeJSON(w, http.StatusOK, completeHabitResponse{
		Habit:     userHabitJSON(result.Habit, true),
		XPEarned:  result.XPEarned,
		Streak:    result.Streak,
		LeveledUp: result.LeveledUp,
	})
}

// handleHabitHistory handles GET /api/v1/habits/{id}/history
func (s *Server) handleHabitHistory(w http.ResponseWriter, r *http.Request) {
	userHabitID := r.PathValue("id")
	if userHabitID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Habit ID is required")
		return
	}

	days := getQueryParamInt(r, "days", 30)

	completions, err := s.deps.ListHabitsHandler.History(r.Context(), userIDFrom(r), userHabitID, days)
	if err != nil {
		s.writeDomainError(w, r, err, "get habit history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_habit_id": userHabitID,
		"days":          days,
		"completions":   completions,
	})
}

// handleArchiveHabit handles DELETE /api/v1/habits/{id}
func (s *Server) handleArchiveHabit(w http.ResponseWriter, r *http.Request) {
	userHabitID := r.PathValue("id")
	if userHabitID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Habit ID is required")
		return
	}

	cmd := command.ArchiveHabitCommand{
		UserID:      userIDFrom(r),
		UserHabitID: userHabitID,
	}

	if err := s.deps.ArchiveHabitHandler.Handle(r.Context(), cmd); err != nil {
		s.writeDomainError(w, r, err, "archive habit")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}

// ══════════════════════════════════════════════════════════════════════════════
// TOOLBOX HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListToolbox handles GET /api/v1/tools
func (s *Server) handleListToolbox(w http.ResponseWriter, r *http.Request) {
	q := query.ListToolboxQuery{UserID: userIDFrom(r)}

	result, err := s.deps.ListToolboxHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "list toolbox")
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, map[string]interface{}{"tools": result},
		&ResponseMeta{TotalCount: len(result)})
}

// addToolRequest is the POST /api/v1/tools payload.
type addToolRequest struct {
	ToolID string `json:"tool_id"`
}

// handleAddTool handles POST /api/v1/tools
func (s *Server) handleAddTool(w http.ResponseWriter, r *http.Request) {
	var req addToolRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.AddToolCommand{
		UserID: userIDFrom(r),
		ToolID: req.ToolID,
	}

	tool, err := s.deps.AddToolHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "add tool")
		return
	}

	writeJSON(w, http.StatusCreated, userToolJSON(tool, false))
}

// useToolResponse is the POST /api/v1/tools/{id}/use response.
type useToolResponse struct {
	Tool      query.UserToolDTO `json:"tool"`
	XPEarned  int               `json:"xp_earned"`
	LeveledUp bool              `json:"leveled_up"`
}

// handleUseTool handles POST /api/v1/tools/{id}/use
func (s *Server) handleUseTool(w http.ResponseWriter, r *http.Request) {
	userToolID := r.PathValue("id")
	if userToolID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Tool ID is required")
		return
	}

	cmd := command.UseToolCommand{
		UserID:        userIDFrom(r),
		UserToolID:    userToolID,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.UseToolHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "use tool")
		return
	}

	writeJSON(w, http.StatusOK, useToolResponse{
		Tool:      userToolJSON(result.Tool, true),
		XPEarned:  result.XPEarned,
		LeveledUp: result.LeveledUp,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE MAPPING
// ══════════════════════════════════════════════════════════════════════════════

func userHabitJSON(h *mastery.UserHabit, completedToday bool) query.UserHabitDTO {
	return query.UserHabitDTO{
		ID:              h.ID,
		HabitID:         h.HabitID,
		Name:            h.Name,
		XPReward:        h.XPReward,
		Active:          h.Active,
		CompletionCount: h.CompletionCount,
		CurrentStreak:   h.CurrentStreak,
		CompletedToday:  completedToday,
		AdoptedAt:       h.AdoptedAt,
	}
}

func userToolJSON(t *mastery.UserTool, usedToday bool) query.UserToolDTO {
	return query.UserToolDTO{
		ID:         t.ID,
		ToolID:     t.ToolID,
		Name:       t.Name,
		XPReward:   t.XPReward,
		UsageCount: t.UsageCount,
		UsedToday:  usedToday,
		AddedAt:    t.AddedAt,
	}
}
