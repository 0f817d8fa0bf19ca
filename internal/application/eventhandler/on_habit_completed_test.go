package eventhandler

import (
	"context"
	"testing"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/mastery"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
	"github.com/human-catalyst/catalyst-hub/internal/domain/skill"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

type fakeProgress struct {
	points map[string]float64 // userID:skillID -> points
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{points: make(map[string]float64)}
}

func (p *fakeProgress) ListUserSkills(ctx context.Context, userID string) ([]skill.UserSkill, error) {
	return nil, nil
}

func (p *fakeProgress) AddPoints(ctx context.Context, userID, skillID string, points float64) error {
	p.points[userID+":"+skillID] += points
	return nil
}

func (p *fakeProgress) RecordXPTransaction(ctx context.Context, tx skill.XPTransaction) error {
	return nil
}

func (p *fakeProgress) ListXPTransactions(ctx context.Context, userID string, limit int) ([]skill.XPTransaction, error) {
	return nil, nil
}

func TestOnHabitCompleted_AwardsPointsToLinkedSkills(t *testing.T) {
	library := &fakeLibrary{habits: map[string]mastery.HabitDefinition{
		"habit-1": {ID: "habit-1", Name: "Cold shower", SkillIDs: []string{"skill-a", "skill-b"}},
	}}
	progress := newFakeProgress()
	h := NewOnHabitCompletedHandler(library, progress, nil, nil)

	event := shared.NewHabitCompletedEvent("user-1", "habit-1", 10, 3, time.Now().UTC())
	require.NoError(t, h.Handle(event))

	assert.InDelta(t, mastery.SkillPointsPerHabitCompletion, progress.points["user-1:skill-a"], 1e-9)
	assert.InDelta(t, mastery.SkillPointsPerHabitCompletion, progress.points["user-1:skill-b"], 1e-9)
}

func TestOnHabitCompleted_MissingDefinitionIsSkipped(t *testing.T) {
	library := &fakeLibrary{habits: map[string]mastery.HabitDefinition{}}
	progress := newFakeProgress()
	h := NewOnHabitCompletedHandler(library, progress, nil, nil)

	event := shared.NewHabitCompletedEvent("user-1", "gone", 10, 1, time.Now().UTC())
	require.NoError(t, h.Handle(event))
	assert.Empty(t, progress.points)
}

func TestOnToolUsed_AwardsPointsToLinkedSkills(t *testing.T) {
	library := &fakeLibrary{tools: map[string]mastery.ToolDefinition{
		"tool-1": {ID: "tool-1", Name: "Journaling", SkillIDs: []string{"skill-c"}},
	}}
	progress := newFakeProgress()
	h := NewOnToolUsedHandler(library, progress, nil, nil)

	event := shared.NewToolUsedEvent("user-1", "tool-1", 15, time.Now().UTC())
	require.NoError(t, h.Handle(event))

	assert.InDelta(t, mastery.SkillPointsPerToolUsage, progress.points["user-1:skill-c"], 1e-9)
}

func TestOnHabitCompleted_IgnoresOtherEvents(t *testing.T) {
	progress := newFakeProgress()
	h := NewOnHabitCompletedHandler(&fakeLibrary{}, progress, nil, nil)

	event := shared.NewToolUsedEvent("user-1", "tool-1", 15, time.Now().UTC())
	require.NoError(t, h.Handle(event))
	assert.Empty(t, progress.points)
}
