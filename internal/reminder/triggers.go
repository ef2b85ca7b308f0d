// Package reminder turns canonical schedule items into recurring weekly
// notification triggers and keeps the active trigger set per item current.
package reminder

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"acadsched/internal/model"
	"acadsched/internal/timeutil"
)

// ErrNotRunning is returned by the cron scheduler when triggers are armed
// before Start (or after Stop).
var ErrNotRunning = errors.New("trigger scheduler not running")

// ComputeTriggers derives up to three trigger descriptors for an item:
// lead-time-before-start (only when leadMinutes > 0), at-start and at-end.
// The three are independent. Returns nil when the item's day does not
// canonicalize to a weekday.
func ComputeTriggers(item model.ScheduleItem, leadMinutes int) []model.TriggerDescriptor {
	if timeutil.WeekdayIndex(item.Day) < 0 {
		return nil
	}

	var out []model.TriggerDescriptor
	if leadMinutes > 0 {
		if t, ok := computeTrigger(item.Day, item.StartTime, leadMinutes, model.TriggerLead); ok {
			out = append(out, t)
		}
	}
	if t, ok := computeTrigger(item.Day, item.StartTime, 0, model.TriggerStart); ok {
		out = append(out, t)
	}
	if t, ok := computeTrigger(item.Day, item.EndTime, 0, model.TriggerEnd); ok {
		out = append(out, t)
	}
	return out
}

// computeTrigger anchors a weekly trigger offsetMinutes before anchorTime on
// day. Negative minutes wrap into the previous weekday (Sunday 00:10 with a
// 30-minute lead fires Saturday 23:40).
func computeTrigger(day, anchorTime string, offsetMinutes int, kind model.TriggerKind) (model.TriggerDescriptor, bool) {
	idx := timeutil.WeekdayIndex(day)
	if idx < 0 {
		return model.TriggerDescriptor{}, false
	}
	minutes, err := timeutil.MinutesSinceMidnight(anchorTime)
	if err != nil {
		return model.TriggerDescriptor{}, false
	}
	minutes -= offsetMinutes
	for minutes < 0 {
		minutes += 24 * 60
		idx = (idx + 6) % 7
	}
	return model.TriggerDescriptor{
		Kind:    kind,
		Weekday: idx + 1, // service convention: 1=Sunday .. 7=Saturday
		Hour:    minutes / 60,
		Minute:  minutes % 60,
		Repeats: true,
	}, true
}

// CronSpec renders a trigger as a standard 5-field cron expression.
// Cron's day-of-week field is 0-6 with 0=Sunday, one below the descriptor's.
func CronSpec(t model.TriggerDescriptor) string {
	return fmt.Sprintf("%d %d * * %d", t.Minute, t.Hour, t.Weekday-1)
}

// NextOccurrence computes the next concrete start datetime of an item after
// now, using a weekly recurrence rule. Returns the zero time when the item's
// day or start time is malformed.
func NextOccurrence(item model.ScheduleItem, now time.Time) time.Time {
	idx := timeutil.WeekdayIndex(item.Day)
	if idx < 0 {
		return time.Time{}
	}
	minutes, err := timeutil.MinutesSinceMidnight(item.StartTime)
	if err != nil {
		return time.Time{}
	}

	// rrule weekdays are Monday-based.
	byday := []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}[(idx+6)%7]

	dtstart := time.Date(now.Year(), now.Month(), now.Day(), minutes/60, minutes%60, 0, 0, now.Location()).AddDate(0, 0, -7)
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{byday},
		Dtstart:   dtstart,
	})
	if err != nil {
		return time.Time{}
	}
	return r.After(now, false)
}
