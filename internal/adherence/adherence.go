// Package adherence computes expected-vs-taken dose statistics. All
// functions are pure and safe to call from any goroutine.
package adherence

import (
	"time"

	"meditrack/internal/medication"
)

// Policy resolves how expired medications count. The zero value keeps
// expected doses accruing past the end date.
type Policy struct {
	// FreezeExpectedAtEnd stops expected-dose accrual at the end date,
	// so a finished course settles at its final rate instead of
	// decaying forever.
	FreezeExpectedAtEnd bool
}

// Rate returns taken/expected doses for one medication as of the given
// time. Expected doses accrue per elapsed calendar day since StartDate;
// the first day counts as soon as it has started. A medication with no
// configured times has no schedule to adhere to and rates 0. The result
// is not clamped, so over-taking yields a rate above 1.
func (p Policy) Rate(m *medication.Medication, asOf time.Time) float64 {
	if len(m.Times) == 0 {
		return 0
	}
	if p.FreezeExpectedAtEnd && m.EndDate != nil && m.EndDate.Before(asOf) {
		asOf = *m.EndDate
	}
	expected := m.Frequency * elapsedDays(m.StartDate, asOf)
	if expected == 0 {
		expected = 1
	}
	return float64(len(m.TakenDoses)) / float64(expected)
}

// Overall returns the mean of the per-medication rates scaled to a
// percentage. An empty list rates 0.
func (p Policy) Overall(meds []*medication.Medication, asOf time.Time) float64 {
	if len(meds) == 0 {
		return 0
	}
	var sum float64
	for _, m := range meds {
		sum += p.Rate(m, asOf)
	}
	return sum / float64(len(meds)) * 100
}

// Rate is the zero-policy form of Policy.Rate.
func Rate(m *medication.Medication, asOf time.Time) float64 {
	return Policy{}.Rate(m, asOf)
}

// Overall is the zero-policy form of Policy.Overall.
func Overall(meds []*medication.Medication, asOf time.Time) float64 {
	return Policy{}.Overall(meds, asOf)
}

// DailyProgress returns doses taken on asOf's calendar day across
// today's medications, divided by the number of those medications.
// An empty list rates 0.
func DailyProgress(todays []*medication.Medication, asOf time.Time) float64 {
	if len(todays) == 0 {
		return 0
	}
	taken := 0
	for _, m := range todays {
		for _, d := range m.TakenDoses {
			if SameDay(d, asOf) {
				taken++
			}
		}
	}
	return float64(taken) / float64(len(todays))
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// elapsedDays counts whole calendar days from start to asOf, never less
// than one: a medication created today already expects a full day of
// doses, which also keeps the rate denominator non-zero.
func elapsedDays(start, asOf time.Time) int {
	days := daysBetween(start, asOf)
	if days < 1 {
		return 1
	}
	return days
}

func daysBetween(a, b time.Time) int {
	a = startOfDay(a)
	b = startOfDay(b)
	// Rounding absorbs DST offsets between the two midnights.
	return int(b.Sub(a).Hours()/24 + 0.5)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
