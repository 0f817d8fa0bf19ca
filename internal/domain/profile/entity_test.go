package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProfile(t *testing.T) *Profile {
	t.Helper()

	p, err := NewProfile(NewProfileParams{
		ID:           "11111111-1111-1111-1111-111111111111",
		Email:        "Alice@Example.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		DisplayName:  "Alice",
	})
	require.NoError(t, err)
	return p
}

func TestNewProfile_SignupDefaults(t *testing.T) {
	p := newTestProfile(t)

	assert.Equal(t, "alice@example.com", p.Email)
	assert.Equal(t, RoleFree, p.Role)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 0, p.CurrentXP)
	assert.Equal(t, 0, p.TotalXPEarned)
	assert.Equal(t, SubscriptionNone, p.SubscriptionStatus)
	assert.Empty(t, p.StripeCustomerID)
	assert.Empty(t, p.SubscriptionID)
}

func TestNewProfile_DisplayNameFallback(t *testing.T) {
	p, err := NewProfile(NewProfileParams{
		ID:           "22222222-2222-2222-2222-222222222222",
		Email:        "bob@example.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", p.DisplayName)
}

func TestNewProfile_Validation(t *testing.T) {
	_, err := NewProfile(NewProfileParams{
		ID:           "33333333-3333-3333-3333-333333333333",
		Email:        "not-an-email",
		PasswordHash: "hash",
	})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = NewProfile(NewProfileParams{
		ID:    "33333333-3333-3333-3333-333333333333",
		Email: "ok@example.com",
	})
	assert.ErrorIs(t, err, ErrMissingPasswordHash)
}

func TestRoleForPlan(t *testing.T) {
	assert.Equal(t, RoleTeacher, RoleForPlan("teacher"))
	assert.Equal(t, RoleTeacher, RoleForPlan("Teacher"))
	assert.Equal(t, RoleStudent, RoleForPlan("student"))
	assert.Equal(t, RoleStudent, RoleForPlan("monthly"))
	assert.Equal(t, RoleStudent, RoleForPlan(""))
}

func TestApplySubscription_GrantsRole(t *testing.T) {
	p := newTestProfile(t)

	err := p.ApplySubscription("sub_123", SubscriptionActive, "student")
	require.NoError(t, err)

	assert.Equal(t, RoleStudent, p.Role)
	assert.Equal(t, "sub_123", p.SubscriptionID)
	assert.Equal(t, SubscriptionActive, p.SubscriptionStatus)
	assert.True(t, p.HasActiveAccess())
}

func TestApplySubscription_TeacherPlan(t *testing.T) {
	p := newTestProfile(t)

	err := p.ApplySubscription("sub_456", SubscriptionActive, "teacher")
	require.NoError(t, err)
	assert.Equal(t, RoleTeacher, p.Role)
}

func TestApplySubscription_AdminNeverDowngraded(t *testing.T) {
	p := newTestProfile(t)
	p.Role = RoleAdmin

	err := p.ApplySubscription("sub_789", SubscriptionActive, "student")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, p.Role)

	p.CancelSubscription()
	assert.Equal(t, RoleAdmin, p.Role)
}

func TestSyncSubscriptionState_KeepsRole(t *testing.T) {
	p := newTestProfile(t)
	require.NoError(t, p.ApplySubscription("sub_456", SubscriptionActive, "teacher"))

	err := p.SyncSubscriptionState("sub_456", SubscriptionActive)
	require.NoError(t, err)
	assert.Equal(t, RoleTeacher, p.Role)
	assert.Equal(t, SubscriptionActive, p.SubscriptionStatus)
}

func TestSyncSubscriptionState_UpdatesStatusOnly(t *testing.T) {
	p := newTestProfile(t)
	require.NoError(t, p.ApplySubscription("sub_456", SubscriptionActive, "student"))

	require.NoError(t, p.SyncSubscriptionState("sub_new", SubscriptionPastDue))
	assert.Equal(t, "sub_new", p.SubscriptionID)
	assert.Equal(t, SubscriptionPastDue, p.SubscriptionStatus)
	assert.Equal(t, RoleStudent, p.Role)

	// An empty subscription ID leaves the stored reference alone.
	require.NoError(t, p.SyncSubscriptionState("", SubscriptionActive))
	assert.Equal(t, "sub_new", p.SubscriptionID)

	err := p.SyncSubscriptionState("sub_new", "bogus")
	assert.ErrorIs(t, err, ErrInvalidSubscriptionStatus)
}

func TestCancelSubscription(t *testing.T) {
	p := newTestProfile(t)
	require.NoError(t, p.AttachCustomer("cus_abc"))
	require.NoError(t, p.ApplySubscription("sub_123", SubscriptionActive, "student"))

	p.CancelSubscription()

	assert.Equal(t, RoleFree, p.Role)
	assert.Equal(t, SubscriptionCancelled, p.SubscriptionStatus)
	assert.Empty(t, p.SubscriptionID)
	// Customer reference survives so a resubscribe reuses it.
	assert.Equal(t, "cus_abc", p.StripeCustomerID)
	assert.False(t, p.HasActiveAccess())
}

func TestMarkPastDue_KeepsAccess(t *testing.T) {
	p := newTestProfile(t)
	require.NoError(t, p.ApplySubscription("sub_123", SubscriptionActive, "student"))

	p.MarkPastDue()

	assert.Equal(t, SubscriptionPastDue, p.SubscriptionStatus)
	assert.Equal(t, RoleStudent, p.Role)
	assert.True(t, p.HasActiveAccess())
}

func TestAttachCustomer_Idempotent(t *testing.T) {
	p := newTestProfile(t)

	require.NoError(t, p.AttachCustomer("cus_abc"))
	require.NoError(t, p.AttachCustomer("cus_abc"))
	assert.Equal(t, "cus_abc", p.StripeCustomerID)

	assert.Error(t, p.AttachCustomer(""))
}

func TestAwardXP(t *testing.T) {
	p := newTestProfile(t)

	require.NoError(t, p.AwardXP(30))
	require.NoError(t, p.AwardXP(20))

	assert.Equal(t, 50, p.CurrentXP)
	assert.Equal(t, 50, p.TotalXPEarned)

	assert.Error(t, p.AwardXP(0))
	assert.Error(t, p.AwardXP(-5))
}

func TestSetLevel_OnlyMovesUp(t *testing.T) {
	p := newTestProfile(t)

	p.SetLevel(3)
	assert.Equal(t, 3, p.Level)

	p.SetLevel(2)
	assert.Equal(t, 3, p.Level)
}

func TestRolePermissions(t *testing.T) {
	assert.True(t, RoleStudent.CanAccessPremium())
	assert.True(t, RoleTeacher.CanAccessPremium())
	assert.True(t, RoleAdmin.CanAccessPremium())
	assert.False(t, RoleFree.CanAccessPremium())

	assert.True(t, RoleTeacher.CanManageContent())
	assert.True(t, RoleAdmin.CanManageContent())
	assert.False(t, RoleStudent.CanManageContent())

	assert.True(t, RoleAdmin.CanAdminister())
	assert.False(t, RoleTeacher.CanAdminister())
}
