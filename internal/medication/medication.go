// Package medication holds the domain model: medications, their daily
// time slots, and the dose events recorded against them.
package medication

import (
	"time"

	"github.com/google/uuid"

	"meditrack/internal/apperr"
)

// IntakeCondition describes how a dose relates to meals. Metadata only,
// it never affects scheduling.
type IntakeCondition string

const (
	BeforeMeal    IntakeCondition = "before_meal"
	AfterMeal     IntakeCondition = "after_meal"
	WithMeal      IntakeCondition = "with_meal"
	NoRestriction IntakeCondition = "no_restriction"
)

func (c IntakeCondition) Valid() bool {
	switch c {
	case BeforeMeal, AfterMeal, WithMeal, NoRestriction:
		return true
	}
	return false
}

// Label returns the human-readable form used in reminder bodies.
func (c IntakeCondition) Label() string {
	switch c {
	case BeforeMeal:
		return "before a meal"
	case AfterMeal:
		return "after a meal"
	case WithMeal:
		return "with a meal"
	default:
		return "no restriction"
	}
}

// Time is one recurring time-of-day slot. It is not a calendar date; it
// gets projected onto a concrete day via On.
type Time struct {
	ID     uuid.UUID `json:"id"`
	Hour   int       `json:"hour"`
	Minute int       `json:"minute"`
}

// NewTime validates the hour/minute range and assigns a stable slot id.
func NewTime(hour, minute int) (Time, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Time{}, apperr.ErrBadTimeOfDay
	}
	return Time{ID: uuid.New(), Hour: hour, Minute: minute}, nil
}

// On projects the slot onto the calendar day of the given time.
func (t Time) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

// Medication is the aggregate root. All fields except TakenDoses are
// fixed at construction; TakenDoses only ever grows.
type Medication struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Dosage     string          `json:"dosage"`
	Condition  IntakeCondition `json:"condition"`
	Frequency  int             `json:"frequency"` // expected doses per day
	Times      []Time          `json:"times"`
	TakenDoses []time.Time     `json:"taken_doses"`
	Notes      string          `json:"notes,omitempty"`
	StartDate  time.Time       `json:"start_date"`
	EndDate    *time.Time      `json:"end_date,omitempty"`
}

// Params carries the construction input for New.
type Params struct {
	Name      string
	Dosage    string
	Condition IntakeCondition
	Frequency int
	Times     []Time
	Notes     string
	StartDate time.Time // zero value means "now"
	EndDate   *time.Time
}

// New builds a validated Medication with a fresh id. len(Times) is not
// required to equal Frequency.
func New(p Params) (*Medication, error) {
	if p.Name == "" {
		return nil, apperr.ErrEmptyName
	}
	if p.Frequency < 1 {
		return nil, apperr.ErrBadFrequency
	}
	for _, t := range p.Times {
		if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
			return nil, apperr.ErrBadTimeOfDay
		}
	}
	cond := p.Condition
	if cond == "" {
		cond = NoRestriction
	}
	if !cond.Valid() {
		return nil, apperr.ErrBadCondition
	}
	start := p.StartDate
	if start.IsZero() {
		start = time.Now()
	}

	m := &Medication{
		ID:        uuid.New(),
		Name:      p.Name,
		Dosage:    p.Dosage,
		Condition: cond,
		Frequency: p.Frequency,
		Times:     append([]Time(nil), p.Times...),
		Notes:     p.Notes,
		StartDate: start,
		EndDate:   p.EndDate,
	}
	return m, nil
}

// SampleParams is the demo medication seeded on an empty store.
func SampleParams() Params {
	morning, _ := NewTime(9, 0)
	evening, _ := NewTime(21, 0)
	return Params{
		Name:      "Aspirin",
		Dosage:    "100mg",
		Condition: AfterMeal,
		Frequency: 2,
		Times:     []Time{morning, evening},
		Notes:     "Take with water",
	}
}

// RecordDose appends one dose event. Dose events are not tied to a slot;
// taking a dose is an act, not a slot reservation.
func (m *Medication) RecordDose(at time.Time) {
	m.TakenDoses = append(m.TakenDoses, at)
}

// ActiveAt reports whether the medication is still active for scheduling
// at the given time. A nil EndDate means open-ended.
func (m *Medication) ActiveAt(t time.Time) bool {
	return m.EndDate == nil || !m.EndDate.Before(t)
}

// Clone returns a deep copy so tracker snapshots cannot alias the
// authoritative collection.
func (m *Medication) Clone() *Medication {
	c := *m
	c.Times = append([]Time(nil), m.Times...)
	c.TakenDoses = append([]time.Time(nil), m.TakenDoses...)
	return &c
}
