// Package tracker owns the authoritative medication collection and
// coordinates the calculators, the reminder scheduler, and persistence.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meditrack/internal/adherence"
	"meditrack/internal/apperr"
	"meditrack/internal/medication"
	"meditrack/internal/metrics"
	"meditrack/internal/reminders"
	"meditrack/internal/schedule"
)

// Repository is the persistence collaborator. Load failures are treated
// as "no medications yet"; save failures are logged, never raised.
type Repository interface {
	LoadAll() ([]*medication.Medication, error)
	SaveAll([]*medication.Medication) error
}

// State is an immutable snapshot of the derived views. Medications are
// deep copies; mutating them does not touch the tracker.
type State struct {
	Medications       []*medication.Medication
	TodaysMedications []*medication.Medication
	OverallAdherence  float64 // percentage
	DailyProgress     float64 // ratio in [0, 1]
}

// Tracker is the single owner of the medication collection. Commands
// are expected to arrive from one logical caller at a time; the
// internal mutex protects snapshot reads against the dispatcher but
// callers with multiple producers must still serialize commands.
type Tracker struct {
	repo      Repository
	scheduler *reminders.Scheduler
	logger    *zap.Logger
	now       func() time.Time
	policy    adherence.Policy

	mu    sync.Mutex
	meds  []*medication.Medication
	state State

	obsMu     sync.Mutex
	observers map[int]func(State)
	nextObs   int
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the wall clock, used in tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithPolicy sets the adherence policy for derived views.
func WithPolicy(p adherence.Policy) Option {
	return func(t *Tracker) { t.policy = p }
}

// New loads the stored collection and registers reminders for it. A
// load failure degrades to an empty collection.
func New(repo Repository, scheduler *reminders.Scheduler, logger *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		repo:      repo,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
		observers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(t)
	}

	meds, err := repo.LoadAll()
	if err != nil {
		logger.Warn("failed to load medications, starting empty", zap.Error(err))
		metrics.RecordLoadFailed()
		meds = nil
	}
	t.meds = meds
	t.recomputeLocked()

	for _, m := range t.meds {
		t.scheduler.Reconcile(m)
	}

	logger.Info("tracker ready", zap.Int("medications", len(t.meds)))
	return t
}

// RequestPermission asks for alert delivery once at startup. It can be
// re-issued any time without touching existing registrations.
func (t *Tracker) RequestPermission(ctx context.Context) bool {
	return t.scheduler.RequestPermission(ctx)
}

// Command is one mutation of the medication collection.
type Command interface {
	kind() string
}

// Add creates a new medication.
type Add struct {
	Params medication.Params
}

// MarkTaken records a dose event for the medication, timestamped now.
type MarkTaken struct {
	ID uuid.UUID
}

// Delete removes a medication and its reminders.
type Delete struct {
	ID uuid.UUID
}

// Update replaces the stored medication with the same id.
type Update struct {
	Medication *medication.Medication
}

func (Add) kind() string       { return "add" }
func (MarkTaken) kind() string { return "mark_taken" }
func (Delete) kind() string    { return "delete" }
func (Update) kind() string    { return "update" }

// Dispatch runs one command. Only validation failures surface as
// errors; unknown ids are silent no-ops and side-effect failures
// (persistence, alerts) are logged without rolling back the mutation.
func (t *Tracker) Dispatch(cmd Command) error {
	var err error
	switch c := cmd.(type) {
	case Add:
		_, err = t.AddMedication(c.Params)
	case MarkTaken:
		t.MarkDoseTaken(c.ID)
	case Delete:
		t.DeleteMedication(c.ID)
	case Update:
		t.UpdateMedication(c.Medication)
	}
	metrics.RecordCommand(cmd.kind(), err == nil)
	return err
}

// AddMedication validates and appends a new medication, then registers
// its reminders. The returned value is a copy.
func (t *Tracker) AddMedication(p medication.Params) (*medication.Medication, error) {
	med, err := medication.New(p)
	if err != nil {
		t.logger.Warn("rejected invalid medication", zap.String("name", p.Name), zap.Error(err))
		return nil, err
	}

	t.mu.Lock()
	t.meds = append(t.meds, med)
	t.recomputeLocked()
	t.saveLocked()
	t.mu.Unlock()

	t.scheduler.Reconcile(med)
	t.logger.Info("medication added",
		zap.String("id", med.ID.String()),
		zap.String("name", med.Name),
		zap.Int("times", len(med.Times)))
	t.notify()
	return med.Clone(), nil
}

// MarkDoseTaken appends a dose event timestamped now. Unknown ids are
// ignored. Taking a dose does not change the schedule, so the
// scheduler is not invoked.
func (t *Tracker) MarkDoseTaken(id uuid.UUID) {
	t.mu.Lock()
	med := t.findLocked(id)
	if med == nil {
		t.mu.Unlock()
		t.logger.Debug("mark-taken for unknown medication", zap.String("id", id.String()))
		metrics.RecordCommandIgnored()
		return
	}
	med.RecordDose(t.now())
	metrics.RecordDose()
	t.recomputeLocked()
	t.saveLocked()
	t.mu.Unlock()

	t.notify()
}

// DeleteMedication removes the medication and cancels all its
// reminders. Unknown ids are ignored.
func (t *Tracker) DeleteMedication(id uuid.UUID) {
	t.mu.Lock()
	idx := -1
	for i, m := range t.meds {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.mu.Unlock()
		metrics.RecordCommandIgnored()
		return
	}
	t.meds = append(t.meds[:idx], t.meds[idx+1:]...)
	t.recomputeLocked()
	t.saveLocked()
	t.mu.Unlock()

	t.scheduler.CancelAll(id)
	t.logger.Info("medication deleted", zap.String("id", id.String()))
	t.notify()
}

// UpdateMedication replaces the stored medication with the same id and
// reconciles its reminders against any changed times. Unknown ids are
// ignored.
func (t *Tracker) UpdateMedication(med *medication.Medication) {
	if med == nil {
		metrics.RecordCommandIgnored()
		return
	}

	t.mu.Lock()
	idx := -1
	for i, m := range t.meds {
		if m.ID == med.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.mu.Unlock()
		metrics.RecordCommandIgnored()
		return
	}
	stored := med.Clone()
	t.meds[idx] = stored
	t.recomputeLocked()
	t.saveLocked()
	t.mu.Unlock()

	t.scheduler.Reconcile(stored)
	t.notify()
}

// State returns the current snapshot.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsTimeToTake reports whether the medication is due now.
func (t *Tracker) IsTimeToTake(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	med := t.findLocked(id)
	return med != nil && schedule.IsTimeToTake(med, t.now())
}

// NextDose returns the medication's next slot today, or the
// no-dose-remaining sentinel when all slots have passed.
func (t *Tracker) NextDose(id uuid.UUID) (time.Time, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	med := t.findLocked(id)
	if med == nil {
		return time.Time{}, apperr.ErrMedicationNotFound
	}
	return schedule.NextDose(med, t.now())
}

// Subscribe registers an observer for state changes; the returned
// function unsubscribes it. Observers run on the dispatching goroutine.
func (t *Tracker) Subscribe(fn func(State)) func() {
	t.obsMu.Lock()
	id := t.nextObs
	t.nextObs++
	t.observers[id] = fn
	t.obsMu.Unlock()

	return func() {
		t.obsMu.Lock()
		delete(t.observers, id)
		t.obsMu.Unlock()
	}
}

func (t *Tracker) findLocked(id uuid.UUID) *medication.Medication {
	for _, m := range t.meds {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (t *Tracker) recomputeLocked() {
	now := t.now()
	todays := schedule.TodaysMedications(t.meds, now)
	t.state = State{
		Medications:       cloneAll(t.meds),
		TodaysMedications: cloneAll(todays),
		OverallAdherence:  t.policy.Overall(t.meds, now),
		DailyProgress:     adherence.DailyProgress(todays, now),
	}
}

func (t *Tracker) saveLocked() {
	if err := t.repo.SaveAll(t.meds); err != nil {
		t.logger.Error("failed to save medications", zap.Error(err))
		metrics.RecordSave(false)
		return
	}
	metrics.RecordSave(true)
}

func (t *Tracker) notify() {
	state := t.State()

	t.obsMu.Lock()
	fns := make([]func(State), 0, len(t.observers))
	for _, fn := range t.observers {
		fns = append(fns, fn)
	}
	t.obsMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

func cloneAll(meds []*medication.Medication) []*medication.Medication {
	out := make([]*medication.Medication, len(meds))
	for i, m := range meds {
		out[i] = m.Clone()
	}
	return out
}
