package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meditrack/internal/apperr"
	"meditrack/internal/medication"
)

func newMed(t *testing.T, slots ...[2]int) *medication.Medication {
	t.Helper()
	var times []medication.Time
	for _, s := range slots {
		slot, err := medication.NewTime(s[0], s[1])
		require.NoError(t, err)
		times = append(times, slot)
	}
	m, err := medication.New(medication.Params{
		Name:      "Aspirin",
		Frequency: 1,
		Times:     times,
	})
	require.NoError(t, err)
	return m
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestIsTimeToTake(t *testing.T) {
	m := newMed(t, [2]int{9, 0})

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"exact slot time", at(9, 0), true},
		{"fifteen past within tolerance", at(9, 15), true},
		{"twenty-nine past within tolerance", at(9, 29), true},
		{"thirty past outside tolerance", at(9, 30), false},
		{"previous hour never matches", at(8, 45), false},
		{"next hour never matches", at(10, 0), false},
		{"different hour entirely", at(14, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTimeToTake(m, tt.now))
		})
	}
}

func TestIsTimeToTake_AnySlotMatches(t *testing.T) {
	m := newMed(t, [2]int{9, 0}, [2]int{21, 0})
	assert.True(t, IsTimeToTake(m, at(21, 10)))
	assert.False(t, IsTimeToTake(m, at(15, 0)))
}

func TestIsTimeToTake_NoSlots(t *testing.T) {
	assert.False(t, IsTimeToTake(newMed(t), at(9, 0)))
}

func TestNextDose_ReturnsEarliestFutureSlot(t *testing.T) {
	m := newMed(t, [2]int{21, 0}, [2]int{9, 0}, [2]int{14, 0})

	now := at(10, 0)
	next, err := NextDose(m, now)
	require.NoError(t, err)
	assert.Equal(t, at(14, 0), next)
	assert.True(t, next.After(now))
}

func TestNextDose_SlotAtNowDoesNotCount(t *testing.T) {
	m := newMed(t, [2]int{9, 0}, [2]int{21, 0})
	next, err := NextDose(m, at(9, 0))
	require.NoError(t, err)
	assert.Equal(t, at(21, 0), next)
}

func TestNextDose_AllSlotsPassed(t *testing.T) {
	m := newMed(t, [2]int{9, 0}, [2]int{21, 0})
	_, err := NextDose(m, at(22, 0))
	require.Error(t, err)
	assert.Equal(t, apperr.ErrNoDoseRemaining.Code, apperr.GetCode(err))
}

func TestNextDose_NoSlots(t *testing.T) {
	_, err := NextDose(newMed(t), at(9, 0))
	assert.Equal(t, apperr.ErrNoDoseRemaining.Code, apperr.GetCode(err))
}

func TestTodaysMedications(t *testing.T) {
	scheduled := newMed(t, [2]int{9, 0})
	unscheduled := newMed(t)

	todays := TodaysMedications([]*medication.Medication{scheduled, unscheduled}, at(12, 0))
	require.Len(t, todays, 1)
	assert.Equal(t, scheduled.ID, todays[0].ID)
}

func TestTodaysMedications_Empty(t *testing.T) {
	assert.Empty(t, TodaysMedications(nil, at(12, 0)))
}
