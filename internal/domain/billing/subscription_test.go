package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrent_EmptyHistory(t *testing.T) {
	assert.Nil(t, Current(nil))
	assert.Nil(t, Current([]Subscription{}))
}

func TestCurrent_PicksGreatestID(t *testing.T) {
	subs := []Subscription{
		{ID: 1, Status: SubscriptionActive},
		{ID: 5, Status: SubscriptionExpired, IsExpired: true},
		{ID: 3, Status: SubscriptionActive},
	}

	current := Current(subs)
	require.NotNil(t, current)
	assert.Equal(t, int64(5), current.ID)
}

func TestDecide_EmptyHistoryDenies(t *testing.T) {
	decision := Decide(nil)
	assert.False(t, decision.Allowed)
	assert.Nil(t, decision.Current)
}

func TestDecide_EvaluatesCurrentRecordOnly(t *testing.T) {
	// Older records are active, but the current one (greatest ID) is expired.
	subs := []Subscription{
		{ID: 1, Status: SubscriptionActive},
		{ID: 5, Status: SubscriptionExpired, IsExpired: true},
		{ID: 3, Status: SubscriptionActive},
	}

	decision := Decide(subs)
	assert.False(t, decision.Allowed)
	require.NotNil(t, decision.Current)
	assert.Equal(t, int64(5), decision.Current.ID)
}

func TestDecide_ActiveAllows(t *testing.T) {
	subs := []Subscription{
		{ID: 7, Status: SubscriptionActive, IsExpired: false},
	}

	decision := Decide(subs)
	assert.True(t, decision.Allowed)
	require.NotNil(t, decision.Current)
	assert.Equal(t, int64(7), decision.Current.ID)
}

func TestDecide_ActiveButFlaggedExpiredDenies(t *testing.T) {
	subs := []Subscription{
		{ID: 2, Status: SubscriptionActive, IsExpired: true},
	}

	assert.False(t, Decide(subs).Allowed)
}
