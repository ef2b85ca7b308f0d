package reminder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"acadsched/internal/model"
	"acadsched/internal/notify"
	logx "acadsched/pkg/logx"
)

// TriggerScheduler is the external notification-service boundary: arm one
// recurring trigger, get back an opaque id; cancel by id, unknown ids being
// an idempotent no-op.
type TriggerScheduler interface {
	ScheduleTrigger(ctx context.Context, trig model.TriggerDescriptor, n notify.Notification) (string, error)
	CancelTrigger(id string)
}

// Config controls the reminder service.
type Config struct {
	Enabled     bool
	LeadMinutes int    // 0 disables the lead-time notification only
	Timezone    string // IANA TZ; empty means local
}

// Service keeps each item's active trigger generation current. It is a thin
// policy layer over the TriggerScheduler: permission checks, lead-time
// settings and the cancel-before-reschedule rule live here.
type Service struct {
	mu sync.Mutex

	log      logx.Logger
	notifier notify.Notifier
	sched    TriggerScheduler
	cfg      Config
}

func New(cfg Config, sched TriggerScheduler, notifier notify.Notifier, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{log: log, notifier: notifier, sched: sched, cfg: cfg}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

func (s *Service) LeadMinutes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.LeadMinutes
}

// Apply updates runtime settings. Lead-time changes take effect on the next
// (re)schedule of each item; already-armed triggers keep firing until then.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.cfg.Enabled = cfg.Enabled
	s.cfg.LeadMinutes = cfg.LeadMinutes
	s.mu.Unlock()
}

// Schedule arms the current generation of triggers for item and returns their
// ids. It always cancels the item's previously known ids first (best-effort),
// so at most one generation is ever active per item.
//
// A nil return with nil error means scheduling was declined: reminders
// disabled, notification permission denied, or the item's day does not
// canonicalize. Callers force the item's RemindersEnabled back to false in
// the permission-denied case.
func (s *Service) Schedule(ctx context.Context, item model.ScheduleItem) ([]string, error) {
	s.CancelAll(item.ReminderIDs)

	s.mu.Lock()
	enabled := s.cfg.Enabled
	lead := s.cfg.LeadMinutes
	s.mu.Unlock()

	if !enabled {
		return nil, nil
	}
	if !s.notifier.CheckPermission().Allowed() {
		return nil, nil
	}

	triggers := ComputeTriggers(item, lead)
	if triggers == nil {
		return nil, nil
	}

	ids := make([]string, 0, len(triggers))
	for _, trig := range triggers {
		id, err := s.sched.ScheduleTrigger(ctx, trig, buildNotification(item, trig, lead))
		if err != nil {
			// Treat as "no identifier produced"; the other triggers stand.
			s.log.Warn("trigger schedule failed",
				logx.String("kind", string(trig.Kind)),
				logx.String("spec", CronSpec(trig)),
				logx.Err(err))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CancelAll cancels every id in the list. Cancellation failures never
// surface; the scheduler contract makes unknown ids a no-op.
func (s *Service) CancelAll(ids []string) {
	for _, id := range ids {
		s.sched.CancelTrigger(id)
	}
}

func buildNotification(item model.ScheduleItem, trig model.TriggerDescriptor, lead int) notify.Notification {
	where := item.Room
	if where == "" {
		where = "no room set"
	}
	switch trig.Kind {
	case model.TriggerLead:
		return notify.Notification{
			Kind:  trig.Kind,
			Title: item.Subject,
			Body:  fmt.Sprintf("Starts in %d min at %s (%s)", lead, item.StartTime, where),
		}
	case model.TriggerStart:
		return notify.Notification{
			Kind:  trig.Kind,
			Title: item.Subject,
			Body:  fmt.Sprintf("Starting now at %s (%s)", item.StartTime, where),
		}
	default:
		return notify.Notification{
			Kind:  trig.Kind,
			Title: item.Subject,
			Body:  fmt.Sprintf("Finished at %s", item.EndTime),
		}
	}
}

// ParseTimezone resolves an IANA timezone name, falling back to local time on
// empty or invalid input.
func ParseTimezone(tz string, log logx.Logger) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Warn("invalid timezone, using local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
