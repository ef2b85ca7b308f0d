package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"acadsched/internal/model"
	"acadsched/internal/notify"
	logx "acadsched/pkg/logx"
)

// CronScheduler is the in-process TriggerScheduler: each armed trigger is one
// robfig/cron entry firing weekly, delivering through the notifier.
type CronScheduler struct {
	mu sync.Mutex

	log      logx.Logger
	notifier notify.Notifier
	loc      *time.Location

	c       *cron.Cron
	parser  cron.Parser
	entries map[string]cron.EntryID // reminder id -> cron entry
	running bool
}

func NewCronScheduler(notifier notify.Notifier, loc *time.Location, log logx.Logger) *CronScheduler {
	if log.IsZero() {
		log = logx.Nop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &CronScheduler{
		log:      log,
		notifier: notifier,
		loc:      loc,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		entries:  map[string]cron.EntryID{},
	}
}

func (cs *CronScheduler) Start(ctx context.Context) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.running {
		return
	}
	cs.c = cron.New(cron.WithParser(cs.parser), cron.WithLocation(cs.loc))
	cs.c.Start()
	cs.running = true
}

func (cs *CronScheduler) Stop(ctx context.Context) {
	cs.mu.Lock()
	c := cs.c
	cs.c = nil
	cs.running = false
	cs.entries = map[string]cron.EntryID{}
	cs.mu.Unlock()

	if c != nil {
		stopCtx := c.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
	}
}

func (cs *CronScheduler) ScheduleTrigger(_ context.Context, trig model.TriggerDescriptor, n notify.Notification) (string, error) {
	cs.mu.Lock()
	c := cs.c
	cs.mu.Unlock()
	if c == nil {
		return "", ErrNotRunning
	}

	entryID, err := c.AddFunc(CronSpec(trig), func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = cs.notifier.Send(sendCtx, n)
	})
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	cs.mu.Lock()
	cs.entries[id] = entryID
	cs.mu.Unlock()

	cs.log.Debug("trigger armed",
		logx.String("id", id),
		logx.String("kind", string(trig.Kind)),
		logx.String("spec", CronSpec(trig)))
	return id, nil
}

// CancelTrigger removes one armed trigger. Unknown ids are a no-op.
func (cs *CronScheduler) CancelTrigger(id string) {
	cs.mu.Lock()
	entryID, ok := cs.entries[id]
	if ok {
		delete(cs.entries, id)
	}
	c := cs.c
	cs.mu.Unlock()

	if ok && c != nil {
		c.Remove(entryID)
	}
}

// ActiveCount reports how many triggers are currently armed.
func (cs *CronScheduler) ActiveCount() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.entries)
}
