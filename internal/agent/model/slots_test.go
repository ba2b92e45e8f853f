package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeNeverClearsKnownValues(t *testing.T) {
	prev := Slots{Brand: String("Toyota"), BudgetMax: Int64(2_000_000)}

	merged := prev.Merge(Slots{})
	assert.Equal(t, prev, merged)

	merged = merged.Merge(Slots{Brand: String("Lexus"), Phone: String("+79161234567")})
	require.NotNil(t, merged.Brand)
	assert.Equal(t, "Lexus", *merged.Brand)
	assert.Equal(t, int64(2_000_000), *merged.BudgetMax)
	assert.Equal(t, "+79161234567", *merged.Phone)

	// merge copies values, the source stays untouched
	assert.Equal(t, "Toyota", *prev.Brand)
}

func TestMergeIsIdempotent(t *testing.T) {
	base := Slots{Brand: String("BMW")}
	update := Slots{Model: String("X5"), BudgetMin: Int64(1)}

	once := base.Merge(update)
	twice := once.Merge(update)
	assert.Equal(t, once, twice)
}

func TestMissingFollowsSlotOrder(t *testing.T) {
	s := Slots{Brand: String("Kia"), Phone: String("1")}
	assert.Equal(t, []string{
		SlotModel, SlotBudgetMin, SlotBudgetMax, SlotSourceCountry,
		SlotTimeline, SlotBodyType, SlotCustomerName,
	}, s.Missing())
	assert.Len(t, Slots{}.Missing(), len(SlotNames))
}

func TestMapOnlyHasKnownSlots(t *testing.T) {
	s := Slots{Brand: String("Kia"), BudgetMax: Int64(900_000)}
	assert.Equal(t, map[string]any{
		SlotBrand:     "Kia",
		SlotBudgetMax: int64(900_000),
	}, s.Map())
}

func TestPresenceIgnoresBlankValues(t *testing.T) {
	s := Slots{Brand: String("  "), BudgetMax: Int64(0), Timeline: String("СРОЧНО")}
	assert.False(t, s.HasBrand())
	assert.False(t, s.HasBudgetMax())
	assert.Equal(t, "срочно", s.TimelineText())
}

func TestSetErrorKeepsNonRecoverable(t *testing.T) {
	var st ConversationState
	st.SetError("authentication", "config", false)
	st.SetError("timeout", "slow", true)
	assert.Equal(t, "config", st.Error)
	assert.False(t, st.Recoverable)

	var other ConversationState
	other.SetError("timeout", "slow", true)
	other.SetError("rate_limited", "busy", true)
	assert.Equal(t, "busy", other.Error)
}

func TestLeadStatusFor(t *testing.T) {
	assert.Equal(t, LeadStatusQualified, LeadStatusFor(StageCompleted))
	assert.Equal(t, LeadStatusInProgress, LeadStatusFor(StageClosing))
}
