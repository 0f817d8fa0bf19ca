package command

import (
	"context"
	"fmt"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
	"github.com/human-catalyst/catalyst-hub/internal/domain/skill"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD XP COMMAND
// The single place XP enters the system. Records the transaction,
// bumps the profile counters and recomputes the level from the level
// table. Levels only move up.
// ══════════════════════════════════════════════════════════════════════════════

// AwardXPCommand contains an XP grant.
type AwardXPCommand struct {
	// UserID receives the XP.
	UserID string

	// Amount of XP. Must be positive.
	Amount int

	// Source names what earned it ("habit", "tool", "bonus").
	Source string

	// SourceID references the originating record.
	SourceID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c AwardXPCommand) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("%w: award_xp: user_id is required", shared.ErrValidation)
	}
	if c.Amount <= 0 {
		return shared.ErrInvalidXPAmount
	}
	if c.Source == "" {
		return fmt.Errorf("%w: award_xp: source is required", shared.ErrValidation)
	}
	return nil
}

// AwardXPResult contains the outcome of an XP grant.
type AwardXPResult struct {
	// NewTotalXP is the lifetime XP after the grant.
	NewTotalXP int

	// Level is the level after the grant.
	Level int

	// LeveledUp reports whether the grant crossed a threshold.
	LeveledUp bool

	// PreviousLevel is the level before the grant.
	PreviousLevel int
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AwardXPHandler handles the AwardXPCommand.
type AwardXPHandler struct {
	profileRepo    profile.Repository
	progressRepo   skill.ProgressRepository
	levels         LevelSource
	eventPublisher shared.EventPublisher
}

// LevelSource serves the level table, cached or from storage.
type LevelSource interface {
	Levels(ctx context.Context) (skill.LevelTable, error)
}

// NewAwardXPHandler creates a new AwardXPHandler.
func NewAwardXPHandler(
	profileRepo profile.Repository,
	progressRepo skill.ProgressRepository,
	levels LevelSource,
	eventPublisher shared.EventPublisher,
) *AwardXPHandler {
	return &AwardXPHandler{
		profileRepo:    profileRepo,
		progressRepo:   progressRepo,
		levels:         levels,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the award XP command.
func (h *AwardXPHandler) Handle(ctx context.Context, cmd AwardXPCommand) (*AwardXPResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	p, err := h.profileRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("award_xp: failed to load profile: %w", err)
	}

	previousLevel := p.Level
	if err := p.AwardXP(cmd.Amount); err != nil {
		return nil, err
	}

	table, err := h.levels.Levels(ctx)
	if err != nil {
		return nil, fmt.Errorf("award_xp: failed to load level table: %w", err)
	}

	progress := skill.CurrentAndNextLevel(table, p.TotalXPEarned)
	p.SetLevel(progress.Current.LevelNumber)

	if err := h.profileRepo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("award_xp: failed to update profile: %w", err)
	}

	txn := skill.XPTransaction{
		ID:        uuid.NewString(),
		UserID:    cmd.UserID,
		Amount:    cmd.Amount,
		Source:    cmd.Source,
		SourceID:  cmd.SourceID,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.progressRepo.RecordXPTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("award_xp: failed to record transaction: %w", err)
	}

	h.publish(cmd, p, previousLevel)

	return &AwardXPResult{
		NewTotalXP:    p.TotalXPEarned,
		Level:         p.Level,
		LeveledUp:     p.Level > previousLevel,
		PreviousLevel: previousLevel,
	}, nil
}

func (h *AwardXPHandler) publish(cmd AwardXPCommand, p *profile.Profile, previousLevel int) {
	gained := shared.NewXPGainedEvent(p.ID, cmd.Amount, p.TotalXPEarned, cmd.Source, cmd.SourceID)
	if cmd.CorrelationID != "" {
		gained.BaseEvent = gained.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(gained)

	if p.Level > previousLevel {
		levelUp := shared.NewLevelUpEvent(p.ID, previousLevel, p.Level, p.TotalXPEarned)
		if cmd.CorrelationID != "" {
			levelUp.BaseEvent = levelUp.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.eventPublisher.Publish(levelUp)
	}
}
