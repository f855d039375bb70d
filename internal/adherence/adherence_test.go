package adherence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meditrack/internal/medication"
)

var noon = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newMed(t *testing.T, frequency int, slots ...[2]int) *medication.Medication {
	t.Helper()
	var times []medication.Time
	for _, s := range slots {
		slot, err := medication.NewTime(s[0], s[1])
		require.NoError(t, err)
		times = append(times, slot)
	}
	m, err := medication.New(medication.Params{
		Name:      "Aspirin",
		Dosage:    "100mg",
		Frequency: frequency,
		Times:     times,
		StartDate: noon.Add(-2 * time.Hour),
	})
	require.NoError(t, err)
	return m
}

func TestRate_NoTimesConfigured(t *testing.T) {
	m := newMed(t, 2)
	m.RecordDose(noon)
	assert.Equal(t, 0.0, Rate(m, noon))
}

func TestRate_CreatedTodayNothingTaken(t *testing.T) {
	m := newMed(t, 2, [2]int{9, 0}, [2]int{21, 0})
	assert.Equal(t, 0.0, Rate(m, noon))
}

func TestRate_FullAdherenceIsExactlyOne(t *testing.T) {
	m := newMed(t, 2, [2]int{9, 0}, [2]int{21, 0})
	m.RecordDose(noon.Add(-3 * time.Hour))
	m.RecordDose(noon)
	assert.Equal(t, 1.0, Rate(m, noon))
}

func TestRate_HalfAdherence(t *testing.T) {
	m := newMed(t, 2, [2]int{9, 0}, [2]int{21, 0})
	m.RecordDose(noon)
	assert.Equal(t, 0.5, Rate(m, noon))
}

func TestRate_OverTakingExceedsOne(t *testing.T) {
	m := newMed(t, 1, [2]int{9, 0})
	m.RecordDose(noon)
	m.RecordDose(noon)
	m.RecordDose(noon)
	assert.Equal(t, 3.0, Rate(m, noon))
}

func TestRate_AccruesPerElapsedDay(t *testing.T) {
	m := newMed(t, 2, [2]int{9, 0}, [2]int{21, 0})
	m.StartDate = noon.AddDate(0, 0, -5)

	// 5 elapsed days, 2 per day expected, 4 taken.
	for i := 0; i < 4; i++ {
		m.RecordDose(noon)
	}
	assert.Equal(t, 0.4, Rate(m, noon))
}

func TestRate_StartDateLaterSameDay(t *testing.T) {
	// Started an hour ago: the first day still counts as one whole day.
	m := newMed(t, 3, [2]int{8, 0}, [2]int{14, 0}, [2]int{20, 0})
	m.StartDate = noon.Add(-time.Hour)
	m.RecordDose(noon)
	assert.InDelta(t, 1.0/3.0, Rate(m, noon), 1e-9)
}

func TestPolicy_FreezeExpectedAtEnd(t *testing.T) {
	m := newMed(t, 1, [2]int{9, 0})
	m.StartDate = noon.AddDate(0, 0, -10)
	end := noon.AddDate(0, 0, -8)
	m.EndDate = &end
	m.RecordDose(m.StartDate)
	m.RecordDose(m.StartDate.AddDate(0, 0, 1))

	// Default policy keeps accruing expected doses past the end date.
	assert.Equal(t, 0.2, Rate(m, noon))

	// Frozen policy settles at the two-day course: 2 taken of 2 expected.
	frozen := Policy{FreezeExpectedAtEnd: true}
	assert.Equal(t, 1.0, frozen.Rate(m, noon))
}

func TestOverall_EmptyList(t *testing.T) {
	assert.Equal(t, 0.0, Overall(nil, noon))
}

func TestOverall_MeanOfRatesAsPercentage(t *testing.T) {
	full := newMed(t, 1, [2]int{9, 0})
	full.RecordDose(noon)

	empty := newMed(t, 1, [2]int{9, 0})

	meds := []*medication.Medication{full, empty}
	assert.Equal(t, 50.0, Overall(meds, noon))

	// Order of the list must not matter.
	reversed := []*medication.Medication{empty, full}
	assert.Equal(t, Overall(meds, noon), Overall(reversed, noon))
}

func TestOverall_AspirinScenario(t *testing.T) {
	// One medication, twice daily, created today.
	m := newMed(t, 2, [2]int{9, 0}, [2]int{21, 0})
	meds := []*medication.Medication{m}

	assert.Equal(t, 0.0, Overall(meds, noon))
	m.RecordDose(noon.Add(-3 * time.Hour))
	assert.Equal(t, 50.0, Overall(meds, noon))
	m.RecordDose(noon.Add(9 * time.Hour))
	assert.Equal(t, 100.0, Overall(meds, noon))
}

func TestDailyProgress_CountsOnlyToday(t *testing.T) {
	m := newMed(t, 2, [2]int{9, 0}, [2]int{21, 0})
	m.RecordDose(noon.AddDate(0, 0, -1))
	m.RecordDose(noon)

	other := newMed(t, 1, [2]int{8, 0})

	todays := []*medication.Medication{m, other}
	assert.Equal(t, 0.5, DailyProgress(todays, noon))
}

func TestDailyProgress_EmptyList(t *testing.T) {
	assert.Equal(t, 0.0, DailyProgress(nil, noon))
}

func TestSameDay(t *testing.T) {
	assert.True(t, SameDay(noon, noon.Add(11*time.Hour)))
	assert.False(t, SameDay(noon, noon.Add(13*time.Hour)))
	assert.False(t, SameDay(noon, noon.AddDate(-1, 0, 0)))
}
