package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.RecordCommand("add", true)
	m.RecordCommand("add", true)
	m.RecordCommand("add", false)
	m.RecordCommandIgnored()
	m.RecordDose()
	m.RecordReminderRegistered(true)
	m.RecordReminderRegistered(false)
	m.RecordRemindersCancelled(3)
	m.RecordSave(true)
	m.RecordSave(false)
	m.RecordLoadFailed()

	s := m.Snapshot()
	assert.Equal(t, int64(3), s.CommandsTotal)
	assert.Equal(t, int64(1), s.CommandsFailed)
	assert.Equal(t, int64(1), s.CommandsIgnored)
	assert.Equal(t, int64(1), s.DosesRecorded)
	assert.Equal(t, int64(1), s.RemindersRegistered)
	assert.Equal(t, int64(1), s.RemindersFailed)
	assert.Equal(t, int64(3), s.RemindersCancelled)
	assert.Equal(t, int64(2), s.SavesTotal)
	assert.Equal(t, int64(1), s.SavesFailed)
	assert.Equal(t, int64(1), s.LoadsFailed)
	assert.Equal(t, int64(3), s.CommandTypes["add"])
}

func TestMetrics_Prometheus(t *testing.T) {
	m := New()
	m.RecordCommand("delete", true)
	m.RecordDose()

	out := m.Prometheus()
	assert.Contains(t, out, "meditrack_commands_total 1")
	assert.Contains(t, out, "meditrack_doses_recorded 1")
	assert.Contains(t, out, `meditrack_command_types_total{type="delete"} 1`)
}

func TestMetrics_ConcurrentAccess(t *testing.T) {
	m := New()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				m.RecordCommand("add", true)
				m.RecordDose()
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	s := m.Snapshot()
	require.Equal(t, int64(800), s.CommandsTotal)
	require.Equal(t, int64(800), s.DosesRecorded)
}

func TestDefault_Singleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}
