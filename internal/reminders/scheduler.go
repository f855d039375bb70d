// Package reminders keeps a set of recurring local alert registrations
// consistent with the current medication list.
package reminders

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meditrack/internal/medication"
	"meditrack/internal/metrics"
)

// Registration is one recurring daily alert, keyed by the stable
// (medication id, slot id) pair.
type Registration struct {
	Key    string
	Hour   int
	Minute int
	Title  string
	Body   string
}

// Notifier is the underlying alert subsystem. Register initiates the
// registration; delivery happens later on the notifier's own schedule.
// Cancellation and registration by key are last-writer-wins.
type Notifier interface {
	RequestPermission(ctx context.Context) (bool, error)
	Register(reg Registration) error
	Cancel(key string)
	CancelAll()
}

// Key builds the registration key for one medication slot.
func Key(medID, timeID uuid.UUID) string {
	return medID.String() + "_" + timeID.String()
}

// Scheduler owns the registration key set. It holds no domain data
// beyond the keys it needs to cancel stale registrations. Reminders are
// best effort: registration failures are logged and never surfaced to
// the caller, the adherence record stays authoritative either way.
type Scheduler struct {
	notifier    Notifier
	logger      *zap.Logger
	skipExpired bool
	now         func() time.Time

	mu   sync.Mutex
	keys map[string]Registration
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithExpiredMedications keeps registering reminders for medications
// whose end date has passed. The default drops them.
func WithExpiredMedications() Option {
	return func(s *Scheduler) { s.skipExpired = false }
}

// WithClock overrides the wall clock, used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler creates a scheduler around the given notifier.
func NewScheduler(n Notifier, logger *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		notifier:    n,
		logger:      logger,
		skipExpired: true,
		now:         time.Now,
		keys:        make(map[string]Registration),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestPermission asks the user once for alert delivery. The result
// is not retried automatically; callers may re-issue at any time
// without disturbing existing registrations.
func (s *Scheduler) RequestPermission(ctx context.Context) bool {
	granted, err := s.notifier.RequestPermission(ctx)
	if err != nil {
		s.logger.Warn("notification permission request failed", zap.Error(err))
		return false
	}
	if !granted {
		s.logger.Info("notification permission denied")
	}
	return granted
}

// Reconcile replaces every registration for the medication with a fresh
// set matching its current slots. Idempotent: a second call with the
// same medication yields the same key set, no duplicates and no stale
// alerts for removed slots.
func (s *Scheduler) Reconcile(med *medication.Medication) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelPrefixLocked(med.ID.String() + "_")

	if s.skipExpired && !med.ActiveAt(s.now()) {
		s.logger.Debug("medication expired, no reminders registered",
			zap.String("medication_id", med.ID.String()))
		return
	}

	for _, t := range med.Times {
		reg := Registration{
			Key:    Key(med.ID, t.ID),
			Hour:   t.Hour,
			Minute: t.Minute,
			Title:  "Medication Reminder",
			Body:   fmt.Sprintf("Time to take %s - %s", med.Name, med.Condition.Label()),
		}
		s.keys[reg.Key] = reg
		if err := s.notifier.Register(reg); err != nil {
			// Terminal for this attempt; the next Reconcile retries.
			s.logger.Warn("alert registration failed",
				zap.String("key", reg.Key),
				zap.Error(err))
			metrics.RecordReminderRegistered(false)
			continue
		}
		metrics.RecordReminderRegistered(true)
	}
}

// CancelAll removes every registration for the medication. Invoked on
// medication deletion.
func (s *Scheduler) CancelAll(medID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelPrefixLocked(medID.String() + "_")
}

// CancelEverything removes all registrations system-wide, e.g. after a
// revoked permission.
func (s *Scheduler) CancelEverything() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier.CancelAll()
	n := len(s.keys)
	s.keys = make(map[string]Registration)
	metrics.RecordRemindersCancelled(n)
}

// Keys returns a sorted snapshot of the current registration keys.
func (s *Scheduler) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.keys))
	for k := range s.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KeysFor returns the registration keys held for one medication.
func (s *Scheduler) KeysFor(medID uuid.UUID) []string {
	prefix := medID.String() + "_"
	var keys []string
	for _, k := range s.Keys() {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *Scheduler) cancelPrefixLocked(prefix string) {
	n := 0
	for key := range s.keys {
		if strings.HasPrefix(key, prefix) {
			s.notifier.Cancel(key)
			delete(s.keys, key)
			n++
		}
	}
	if n > 0 {
		metrics.RecordRemindersCancelled(n)
	}
}
