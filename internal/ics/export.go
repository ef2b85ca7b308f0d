// Package ics renders the stored schedule as an iCalendar so it can be
// pulled into any calendar app. Each item becomes one weekly-recurring
// VEVENT.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"acadsched/internal/model"
	"acadsched/internal/reminder"
	"acadsched/internal/timeutil"
)

const prodID = "-//acadsched//schedule//EN"

// byDay maps calendar weekday index (0=Sunday) to the RRULE BYDAY code.
var byDay = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// Export builds an iCalendar for the given items. Items whose day or times do
// not canonicalize are skipped rather than failing the export.
func Export(items []model.ScheduleItem, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)

	for _, it := range items {
		idx := timeutil.WeekdayIndex(it.Day)
		if idx < 0 {
			continue
		}
		start := reminder.NextOccurrence(it, now)
		if start.IsZero() {
			continue
		}
		startMin, err := timeutil.MinutesSinceMidnight(it.StartTime)
		if err != nil {
			continue
		}
		endMin, err := timeutil.MinutesSinceMidnight(it.EndTime)
		if err != nil || endMin <= startMin {
			continue
		}
		end := start.Add(time.Duration(endMin-startMin) * time.Minute)

		ev := cal.AddEvent(fmt.Sprintf("item-%d@acadsched", it.ID))
		ev.SetDtStampTime(now)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(it.Subject)
		if it.Room != "" {
			ev.SetLocation(it.Room)
		}
		if it.Teacher != "" && it.Teacher != model.TeacherTBA {
			ev.SetDescription(it.Teacher)
		}
		ev.AddRrule("FREQ=WEEKLY;BYDAY=" + byDay[idx])
	}

	return cal.Serialize()
}
