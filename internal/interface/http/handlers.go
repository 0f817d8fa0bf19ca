package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/human-catalyst/catalyst-hub/internal/application/command"
	"github.com/human-catalyst/catalyst-hub/internal/application/query"
	"github.com/human-catalyst/catalyst-hub/internal/domain/mastery"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
	"github.com/human-catalyst/catalyst-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Catalyst Hub API",
		"version":     "v1",
		"description": "REST API for Human Catalyst University - Habits, Tools and Skill Mastery",
		"endpoints": map[string]string{
			"health":    "/health",
			"register":  "/api/v1/auth/register",
			"login":     "/api/v1/auth/login",
			"dashboard": "/api/v1/me/dashboard",
			"habits":    "/api/v1/habits",
			"tools":     "/api/v1/tools",
		},
		"documentation": "https://github.com/human-catalyst/catalyst-hub",
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			w.WriteHeader(http.StatusServiceUnavailable)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleMetrics handles the Prometheus metrics endpoint.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	// TODO: Implement Prometheus metrics exposition
	// For now, return basic server metrics as JSON
	metrics := map[string]interface{}{
		"uptime_seconds": s.Uptime().Seconds(),
		"running":        s.IsRunning(),
	}

	writeJSON(w, http.StatusOK, metrics)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetMe handles GET /api/v1/me
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	result, err := s.deps.GetProfileHandler.Handle(r.Context(), query.GetProfileQuery{UserID: userID})
	if err != nil {
		s.writeDomainError(w, r, err, "get profile")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// updateProfileRequest is the PATCH /api/v1/me payload. Absent fields keep
// their current value.
type updateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// handleUpdateMe handles PATCH /api/v1/me
func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.UpdateProfileCommand{
		UserID:      userIDFrom(r),
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	}

	p, err := s.deps.UpdateProfileHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "update profile")
		return
	}

	writeJSON(w, http.StatusOK, query.NewProfileDTO(p))
}

// handleGetDashboard handles GET /api/v1/me/dashboard
func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	q := query.GetDashboardQuery{
		UserID:    userIDFrom(r),
		RadarSize: float64(getQueryParamInt(r, "radar_size", 0)),
	}

	result, err := s.deps.GetDashboardHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "get dashboard")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetSkillMatrix handles GET /api/v1/me/skills
func (s *Server) handleGetSkillMatrix(w http.ResponseWriter, r *http.Request) {
	q := query.GetSkillMatrixQuery{
		UserID:    userIDFrom(r),
		RadarSize: float64(getQueryParamInt(r, "radar_size", 0)),
	}

	result, err := s.deps.GetSkillMatrixHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "get skill matrix")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetLevelProgress handles GET /api/v1/me/level
func (s *Server) handleGetLevelProgress(w http.ResponseWriter, r *http.Request) {
	q := query.GetLevelProgressQuery{UserID: userIDFrom(r)}

	result, err := s.deps.GetLevelProgressHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "get level progress")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST & ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// maxRequestBody caps JSON request bodies.
const maxRequestBody = 1 << 20 // 1 MB

// decodeJSON reads and parses the request body into dst. Writes the error
// response itself and reports whether decoding succeeded.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return false
	}
	defer r.Body.Close()

	if len(body) == 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Request body is required")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return false
	}
	return true
}

// writeDomainError maps application errors onto HTTP status codes. Validation
// problems and known domain conflicts keep their message; everything else is
// logged and collapsed into an opaque 500.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case shared.IsValidation(err):
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Validation failed", err.Error())

	case errors.Is(err, shared.ErrInvalidCredentials):
		writeJSONError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")

	case errors.Is(err, shared.ErrUnauthorized):
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")

	case errors.Is(err, shared.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "forbidden", "You do not have access to this resource")

	case shared.IsNotFound(err),
		errors.Is(err, mastery.ErrHabitNotFound),
		errors.Is(err, mastery.ErrToolNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", "Resource not found")

	case shared.IsAlreadyExists(err),
		errors.Is(err, mastery.ErrHabitAlreadyAdopted),
		errors.Is(err, mastery.ErrToolAlreadyAdded):
		writeJSONError(w, http.StatusConflict, "already_exists", err.Error())

	case errors.Is(err, mastery.ErrAlreadyCompletedToday):
		writeJSONError(w, http.StatusConflict, "already_completed", "Habit already completed today")

	case errors.Is(err, mastery.ErrHabitInactive):
		writeJSONError(w, http.StatusConflict, "habit_inactive", "Archived habits cannot be completed")

	default:
		s.logger.Error("request failed",
			logger.String("action", action),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Something went wrong")
	}
}
