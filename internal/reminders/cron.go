package reminders

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Delivery presents one fired reminder to the user.
type Delivery func(title, body string)

// CronNotifier is the production Notifier: each registration becomes a
// cron entry firing daily at its configured hour and minute. Register
// only installs the entry; delivery happens later on the cron goroutine.
type CronNotifier struct {
	cron    *cron.Cron
	deliver Delivery
	logger  *zap.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	asked   bool
}

// NewCronNotifier creates a stopped notifier; call Start to begin
// firing. A nil delivery func drops fired reminders.
func NewCronNotifier(deliver Delivery, logger *zap.Logger) *CronNotifier {
	return &CronNotifier{
		cron:    cron.New(),
		deliver: deliver,
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
}

// Start begins the firing loop. Safe to call once.
func (n *CronNotifier) Start() {
	n.cron.Start()
}

// Stop halts firing and waits for any running delivery to finish.
func (n *CronNotifier) Stop() {
	<-n.cron.Stop().Done()
}

// RequestPermission is idempotent; local delivery needs no OS grant, so
// it always reports granted. Re-issuing never cancels registrations.
func (n *CronNotifier) RequestPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.asked {
		n.asked = true
		n.logger.Info("notification permission granted")
	}
	return true, nil
}

// Register installs a daily cron entry for the registration. An entry
// already present under the same key is replaced, so the last writer
// for a key wins.
func (n *CronNotifier) Register(reg Registration) error {
	spec := fmt.Sprintf("%d %d * * *", reg.Minute, reg.Hour)
	n.mu.Lock()
	defer n.mu.Unlock()

	if old, ok := n.entries[reg.Key]; ok {
		n.cron.Remove(old)
		delete(n.entries, reg.Key)
	}

	title, body := reg.Title, reg.Body
	id, err := n.cron.AddFunc(spec, func() {
		n.logger.Debug("reminder fired", zap.String("key", reg.Key))
		if n.deliver != nil {
			n.deliver(title, body)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to install cron entry %q: %w", spec, err)
	}
	n.entries[reg.Key] = id
	return nil
}

// Cancel removes the entry for the key, if any.
func (n *CronNotifier) Cancel(key string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if id, ok := n.entries[key]; ok {
		n.cron.Remove(id)
		delete(n.entries, key)
	}
}

// CancelAll removes every entry.
func (n *CronNotifier) CancelAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for key, id := range n.entries {
		n.cron.Remove(id)
		delete(n.entries, key)
	}
}

// Pending returns the number of installed entries.
func (n *CronNotifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.entries)
}
