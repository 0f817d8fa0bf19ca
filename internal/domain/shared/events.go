// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Profile events
	EventProfileRegistered   EventType = "profile.registered"
	EventProfileUpdated      EventType = "profile.updated"
	EventProfileRoleChanged  EventType = "profile.role_changed"
	EventProfileDeactivated  EventType = "profile.deactivated"

	// Progress events
	EventXPGained EventType = "progress.xp_gained"
	EventLevelUp  EventType = "progress.level_up"

	// Mastery events
	EventHabitAdopted   EventType = "mastery.habit_adopted"
	EventHabitCompleted EventType = "mastery.habit_completed"
	EventStreakBroken   EventType = "mastery.streak_broken"
	EventToolAdded      EventType = "mastery.tool_added"
	EventToolUsed       EventType = "mastery.tool_used"

	// Billing events
	EventSubscriptionUpdated  EventType = "billing.subscription_updated"
	EventSubscriptionCanceled EventType = "billing.subscription_canceled"
	EventPaymentSucceeded     EventType = "billing.payment_succeeded"
	EventPaymentFailed        EventType = "billing.payment_failed"
	EventCheckoutCompleted    EventType = "billing.checkout_completed"

	// System events
	EventCatalogWarmed      EventType = "system.catalog_warmed"
	EventStreaksRecomputed  EventType = "system.streaks_recomputed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Profile Events
// ═══════════════════════════════════════════════════════════════════════════

// ProfileRegisteredEvent is emitted when a new user signs up.
type ProfileRegisteredEvent struct {
	BaseEvent
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// Payload implements Event interface.
func (e ProfileRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"email":        e.Email,
		"display_name": e.DisplayName,
		"role":         e.Role,
	}
}

// NewProfileRegisteredEvent creates a new ProfileRegisteredEvent.
func NewProfileRegisteredEvent(userID, email, displayName, role string) ProfileRegisteredEvent {
	return ProfileRegisteredEvent{
		BaseEvent:   NewBaseEvent(EventProfileRegistered, userID),
		Email:       email,
		DisplayName: displayName,
		Role:        role,
	}
}

// ProfileRoleChangedEvent is emitted when a user's role changes,
// usually as a result of billing reconciliation.
type ProfileRoleChangedEvent struct {
	BaseEvent
	UserID  string `json:"user_id"`
	OldRole string `json:"old_role"`
	NewRole string `json:"new_role"`
	Reason  string `json:"reason"` // e.g., "checkout", "subscription_canceled"
}

// Payload implements Event interface.
func (e ProfileRoleChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":  e.UserID,
		"old_role": e.OldRole,
		"new_role": e.NewRole,
		"reason":   e.Reason,
	}
}

// NewProfileRoleChangedEvent creates a new ProfileRoleChangedEvent.
func NewProfileRoleChangedEvent(userID, oldRole, newRole, reason string) ProfileRoleChangedEvent {
	return ProfileRoleChangedEvent{
		BaseEvent: NewBaseEvent(EventProfileRoleChanged, userID),
		UserID:    userID,
		OldRole:   oldRole,
		NewRole:   newRole,
		Reason:    reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted when a user gains XP.
type XPGainedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	Source   string `json:"source"` // e.g., "habit_completion", "tool_usage"
	SourceID string `json:"source_id,omitempty"`
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"source":    e.Source,
		"source_id": e.SourceID,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(userID string, amount, newTotal int, source, sourceID string) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, userID),
		UserID:    userID,
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
		SourceID:  sourceID,
	}
}

// LevelUpEvent is emitted when a user's accumulated XP crosses a level threshold.
type LevelUpEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	TotalXP  int    `json:"total_xp"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"total_xp":  e.TotalXP,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel, totalXP int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		TotalXP:   totalXP,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Mastery Events
// ═══════════════════════════════════════════════════════════════════════════

// HabitCompletedEvent is emitted when a user checks off a habit for the day.
type HabitCompletedEvent struct {
	BaseEvent
	UserID      string    `json:"user_id"`
	HabitID     string    `json:"habit_id"`
	XPEarned    int       `json:"xp_earned"`
	Streak      int       `json:"streak"`
	CompletedAt time.Time `json:"completed_at"`
}

// Payload implements Event interface.
func (e HabitCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"habit_id":     e.HabitID,
		"xp_earned":    e.XPEarned,
		"streak":       e.Streak,
		"completed_at": e.CompletedAt.Format(time.RFC3339),
	}
}

// NewHabitCompletedEvent creates a new HabitCompletedEvent.
func NewHabitCompletedEvent(userID, habitID string, xpEarned, streak int, completedAt time.Time) HabitCompletedEvent {
	return HabitCompletedEvent{
		BaseEvent:   NewBaseEvent(EventHabitCompleted, userID),
		UserID:      userID,
		HabitID:     habitID,
		XPEarned:    xpEarned,
		Streak:      streak,
		CompletedAt: completedAt,
	}
}

// ToolUsedEvent is emitted when a user logs usage of a toolbox item.
type ToolUsedEvent struct {
	BaseEvent
	UserID   string    `json:"user_id"`
	ToolID   string    `json:"tool_id"`
	XPEarned int       `json:"xp_earned"`
	UsedAt   time.Time `json:"used_at"`
}

// Payload implements Event interface.
func (e ToolUsedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"tool_id":   e.ToolID,
		"xp_earned": e.XPEarned,
		"used_at":   e.UsedAt.Format(time.RFC3339),
	}
}

// NewToolUsedEvent creates a new ToolUsedEvent.
func NewToolUsedEvent(userID, toolID string, xpEarned int, usedAt time.Time) ToolUsedEvent {
	return ToolUsedEvent{
		BaseEvent: NewBaseEvent(EventToolUsed, userID),
		UserID:    userID,
		ToolID:    toolID,
		XPEarned:  xpEarned,
		UsedAt:    usedAt,
	}
}

// StreakBrokenEvent is emitted by the streak recompute job when a habit
// streak lapses.
type StreakBrokenEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	HabitID        string `json:"habit_id"`
	PreviousStreak int    `json:"previous_streak"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"habit_id":        e.HabitID,
		"previous_streak": e.PreviousStreak,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID, habitID string, previousStreak int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID),
		UserID:         userID,
		HabitID:        habitID,
		PreviousStreak: previousStreak,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Billing Events
// ═══════════════════════════════════════════════════════════════════════════

// SubscriptionUpdatedEvent is emitted after billing reconciliation
// writes a subscription change through to the profile.
type SubscriptionUpdatedEvent struct {
	BaseEvent
	UserID         string    `json:"user_id"`
	SubscriptionID string    `json:"subscription_id"`
	Status         string    `json:"status"`
	PlanType       string    `json:"plan_type"`
	PeriodEnd      time.Time `json:"period_end"`
}

// Payload implements Event interface.
func (e SubscriptionUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"subscription_id": e.SubscriptionID,
		"status":          e.Status,
		"plan_type":       e.PlanType,
		"period_end":      e.PeriodEnd.Format(time.RFC3339),
	}
}

// NewSubscriptionUpdatedEvent creates a new SubscriptionUpdatedEvent.
func NewSubscriptionUpdatedEvent(userID, subscriptionID, status, planType string, periodEnd time.Time) SubscriptionUpdatedEvent {
	return SubscriptionUpdatedEvent{
		BaseEvent:      NewBaseEvent(EventSubscriptionUpdated, userID),
		UserID:         userID,
		SubscriptionID: subscriptionID,
		Status:         status,
		PlanType:       planType,
		PeriodEnd:      periodEnd,
	}
}

// SubscriptionCanceledEvent is emitted when a subscription is deleted
// at the provider and the user is dropped back to the free role.
type SubscriptionCanceledEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	SubscriptionID string `json:"subscription_id"`
}

// Payload implements Event interface.
func (e SubscriptionCanceledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"subscription_id": e.SubscriptionID,
	}
}

// NewSubscriptionCanceledEvent creates a new SubscriptionCanceledEvent.
func NewSubscriptionCanceledEvent(userID, subscriptionID string) SubscriptionCanceledEvent {
	return SubscriptionCanceledEvent{
		BaseEvent:      NewBaseEvent(EventSubscriptionCanceled, userID),
		UserID:         userID,
		SubscriptionID: subscriptionID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
