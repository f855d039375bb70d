// Package metrics tracks operational counters for the engine.
package metrics

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Metrics struct {
	startTime time.Time

	commandsTotal   atomic.Int64
	commandsFailed  atomic.Int64
	commandsIgnored atomic.Int64 // unknown-id no-ops

	dosesRecorded atomic.Int64

	remindersRegistered atomic.Int64
	remindersFailed     atomic.Int64
	remindersCancelled  atomic.Int64

	savesTotal  atomic.Int64
	savesFailed atomic.Int64
	loadsFailed atomic.Int64

	commandTypes map[string]*atomic.Int64
	commandLock  sync.Mutex
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

func New() *Metrics {
	return &Metrics{
		startTime:    time.Now(),
		commandTypes: make(map[string]*atomic.Int64),
	}
}

func (m *Metrics) RecordCommand(kind string, success bool) {
	m.commandsTotal.Add(1)
	if !success {
		m.commandsFailed.Add(1)
	}

	m.commandLock.Lock()
	defer m.commandLock.Unlock()
	if m.commandTypes[kind] == nil {
		m.commandTypes[kind] = &atomic.Int64{}
	}
	m.commandTypes[kind].Add(1)
}

func (m *Metrics) RecordCommandIgnored() {
	m.commandsIgnored.Add(1)
}

func (m *Metrics) RecordDose() {
	m.dosesRecorded.Add(1)
}

func (m *Metrics) RecordReminderRegistered(success bool) {
	if success {
		m.remindersRegistered.Add(1)
	} else {
		m.remindersFailed.Add(1)
	}
}

func (m *Metrics) RecordRemindersCancelled(n int) {
	m.remindersCancelled.Add(int64(n))
}

func (m *Metrics) RecordSave(success bool) {
	m.savesTotal.Add(1)
	if !success {
		m.savesFailed.Add(1)
	}
}

func (m *Metrics) RecordLoadFailed() {
	m.loadsFailed.Add(1)
}

type Snapshot struct {
	Uptime              time.Duration    `json:"uptime"`
	CommandsTotal       int64            `json:"commands_total"`
	CommandsFailed      int64            `json:"commands_failed"`
	CommandsIgnored     int64            `json:"commands_ignored"`
	DosesRecorded       int64            `json:"doses_recorded"`
	RemindersRegistered int64            `json:"reminders_registered"`
	RemindersFailed     int64            `json:"reminders_failed"`
	RemindersCancelled  int64            `json:"reminders_cancelled"`
	SavesTotal          int64            `json:"saves_total"`
	SavesFailed         int64            `json:"saves_failed"`
	LoadsFailed         int64            `json:"loads_failed"`
	CommandTypes        map[string]int64 `json:"command_types"`
}

func (m *Metrics) Snapshot() *Snapshot {
	s := &Snapshot{
		Uptime:              time.Since(m.startTime),
		CommandsTotal:       m.commandsTotal.Load(),
		CommandsFailed:      m.commandsFailed.Load(),
		CommandsIgnored:     m.commandsIgnored.Load(),
		DosesRecorded:       m.dosesRecorded.Load(),
		RemindersRegistered: m.remindersRegistered.Load(),
		RemindersFailed:     m.remindersFailed.Load(),
		RemindersCancelled:  m.remindersCancelled.Load(),
		SavesTotal:          m.savesTotal.Load(),
		SavesFailed:         m.savesFailed.Load(),
		LoadsFailed:         m.loadsFailed.Load(),
		CommandTypes:        make(map[string]int64),
	}

	m.commandLock.Lock()
	for k, v := range m.commandTypes {
		s.CommandTypes[k] = v.Load()
	}
	m.commandLock.Unlock()

	return s
}

func (m *Metrics) Prometheus() string {
	var sb strings.Builder

	sb.WriteString("# HELP meditrack_uptime_seconds Time since start\n")
	sb.WriteString("# TYPE meditrack_uptime_seconds gauge\n")
	sb.WriteString("meditrack_uptime_seconds " + strconv.FormatInt(int64(time.Since(m.startTime).Seconds()), 10) + "\n\n")

	sb.WriteString("# HELP meditrack_commands_total Commands dispatched\n")
	sb.WriteString("# TYPE meditrack_commands_total counter\n")
	sb.WriteString("meditrack_commands_total " + strconv.FormatInt(m.commandsTotal.Load(), 10) + "\n\n")

	sb.WriteString("# HELP meditrack_commands_failed Commands rejected by validation\n")
	sb.WriteString("# TYPE meditrack_commands_failed counter\n")
	sb.WriteString("meditrack_commands_failed " + strconv.FormatInt(m.commandsFailed.Load(), 10) + "\n\n")

	sb.WriteString("# HELP meditrack_doses_recorded Dose events recorded\n")
	sb.WriteString("# TYPE meditrack_doses_recorded counter\n")
	sb.WriteString("meditrack_doses_recorded " + strconv.FormatInt(m.dosesRecorded.Load(), 10) + "\n\n")

	sb.WriteString("# HELP meditrack_reminders_registered Alert registrations installed\n")
	sb.WriteString("# TYPE meditrack_reminders_registered counter\n")
	sb.WriteString("meditrack_reminders_registered " + strconv.FormatInt(m.remindersRegistered.Load(), 10) + "\n\n")

	sb.WriteString("# HELP meditrack_reminders_failed Alert registrations failed\n")
	sb.WriteString("# TYPE meditrack_reminders_failed counter\n")
	sb.WriteString("meditrack_reminders_failed " + strconv.FormatInt(m.remindersFailed.Load(), 10) + "\n\n")

	sb.WriteString("# HELP meditrack_reminders_cancelled Alert registrations cancelled\n")
	sb.WriteString("# TYPE meditrack_reminders_cancelled counter\n")
	sb.WriteString("meditrack_reminders_cancelled " + strconv.FormatInt(m.remindersCancelled.Load(), 10) + "\n\n")

	sb.WriteString("# HELP meditrack_saves_failed Persistence save failures\n")
	sb.WriteString("# TYPE meditrack_saves_failed counter\n")
	sb.WriteString("meditrack_saves_failed " + strconv.FormatInt(m.savesFailed.Load(), 10) + "\n\n")

	m.commandLock.Lock()
	for kind, count := range m.commandTypes {
		sb.WriteString("# HELP meditrack_command_types_total Commands per type\n")
		sb.WriteString("# TYPE meditrack_command_types_total counter\n")
		sb.WriteString("meditrack_command_types_total{type=\"" + kind + "\"} " + strconv.FormatInt(count.Load(), 10) + "\n\n")
	}
	m.commandLock.Unlock()

	return sb.String()
}

func RecordCommand(kind string, success bool) {
	Default().RecordCommand(kind, success)
}

func RecordCommandIgnored() {
	Default().RecordCommandIgnored()
}

func RecordDose() {
	Default().RecordDose()
}

func RecordReminderRegistered(success bool) {
	Default().RecordReminderRegistered(success)
}

func RecordRemindersCancelled(n int) {
	Default().RecordRemindersCancelled(n)
}

func RecordSave(success bool) {
	Default().RecordSave(success)
}

func RecordLoadFailed() {
	Default().RecordLoadFailed()
}

func GetSnapshot() *Snapshot {
	return Default().Snapshot()
}

func Prometheus() string {
	return Default().Prometheus()
}
