package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanTypeFromInterval(t *testing.T) {
	assert.Equal(t, PlanYearly, PlanTypeFromInterval("year"))
	assert.Equal(t, PlanMonthly, PlanTypeFromInterval("month"))
	assert.Equal(t, PlanMonthly, PlanTypeFromInterval("week"))
	assert.Equal(t, PlanMonthly, PlanTypeFromInterval(""))
}

func TestNewSubscription(t *testing.T) {
	periodEnd := time.Now().UTC().Add(30 * 24 * time.Hour)

	sub, err := NewSubscription(NewSubscriptionParams{
		ID:                   "44444444-4444-4444-4444-444444444444",
		UserID:               "11111111-1111-1111-1111-111111111111",
		StripeSubscriptionID: "sub_123",
		StripeCustomerID:     "cus_abc",
		Status:               StatusActive,
		PlanType:             PlanYearly,
		CurrentPeriodEnd:     periodEnd,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusActive, sub.Status)
	assert.Equal(t, PlanYearly, sub.PlanType)
	assert.True(t, sub.IsCurrent(time.Now().UTC()))
}

func TestNewSubscription_Validation(t *testing.T) {
	_, err := NewSubscription(NewSubscriptionParams{
		ID:                   "44444444-4444-4444-4444-444444444444",
		UserID:               "11111111-1111-1111-1111-111111111111",
		StripeSubscriptionID: "sub_123",
		StripeCustomerID:     "",
		Status:               StatusActive,
	})
	assert.ErrorIs(t, err, ErrMissingReference)

	_, err = NewSubscription(NewSubscriptionParams{
		ID:                   "44444444-4444-4444-4444-444444444444",
		UserID:               "11111111-1111-1111-1111-111111111111",
		StripeSubscriptionID: "sub_123",
		StripeCustomerID:     "cus_abc",
		Status:               Status("weird"),
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestNewSubscription_PlanDefaultsToMonthly(t *testing.T) {
	sub, err := NewSubscription(NewSubscriptionParams{
		ID:                   "44444444-4444-4444-4444-444444444444",
		UserID:               "11111111-1111-1111-1111-111111111111",
		StripeSubscriptionID: "sub_123",
		StripeCustomerID:     "cus_abc",
		Status:               StatusActive,
	})
	require.NoError(t, err)
	assert.Equal(t, PlanMonthly, sub.PlanType)
}

func TestSubscription_Sync(t *testing.T) {
	sub, err := NewSubscription(NewSubscriptionParams{
		ID:                   "44444444-4444-4444-4444-444444444444",
		UserID:               "11111111-1111-1111-1111-111111111111",
		StripeSubscriptionID: "sub_123",
		StripeCustomerID:     "cus_abc",
		Status:               StatusActive,
	})
	require.NoError(t, err)

	periodEnd := time.Now().UTC().Add(365 * 24 * time.Hour)
	require.NoError(t, sub.Sync(StatusPastDue, PlanYearly, periodEnd))

	assert.Equal(t, StatusPastDue, sub.Status)
	assert.Equal(t, PlanYearly, sub.PlanType)
	assert.Equal(t, periodEnd, sub.CurrentPeriodEnd)

	assert.ErrorIs(t, sub.Sync(Status("weird"), PlanMonthly, periodEnd), ErrInvalidStatus)
}

func TestSubscription_Cancel(t *testing.T) {
	sub, err := NewSubscription(NewSubscriptionParams{
		ID:                   "44444444-4444-4444-4444-444444444444",
		UserID:               "11111111-1111-1111-1111-111111111111",
		StripeSubscriptionID: "sub_123",
		StripeCustomerID:     "cus_abc",
		Status:               StatusActive,
		CurrentPeriodEnd:     time.Now().UTC().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	sub.Cancel()
	assert.Equal(t, StatusCancelled, sub.Status)
	assert.False(t, sub.IsCurrent(time.Now().UTC()))
}

func TestProviderSubscription_PlanType(t *testing.T) {
	assert.Equal(t, PlanYearly, ProviderSubscription{PriceInterval: "year"}.PlanType())
	assert.Equal(t, PlanMonthly, ProviderSubscription{PriceInterval: "month"}.PlanType())
}
