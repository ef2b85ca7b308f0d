// Package model defines the canonical schedule records every import path
// normalizes into and every downstream service consumes.
package model

import (
	"fmt"
	"strings"

	"acadsched/internal/timeutil"
)

// TeacherTBA is the placeholder teacher label used when a timetable document
// names no teacher for an entry.
const TeacherTBA = "TBA"

// ScheduleItem is one weekly recurring time-blocked entry (a lecture or a
// routine task). Day is always one of the 7 canonical weekday names and the
// times are canonical zero-padded 24-hour "HH:MM"; producers go through
// timeutil before constructing one of these.
type ScheduleItem struct {
	ID int64

	Day       string
	StartTime string
	EndTime   string

	Subject string
	Room    string
	Teacher string
	Notes   string
	Done    bool

	RemindersEnabled bool

	// ReminderIDs are the opaque identifiers returned by the notification
	// service for this item's active triggers (lead, start, end). The list is
	// exclusively owned by this item; edits must cancel them before new ones
	// are issued.
	ReminderIDs []string
}

// Key returns the composite identity used to de-duplicate imported items.
func (it ScheduleItem) Key() string {
	return strings.Join([]string{it.Day, it.StartTime, it.EndTime, it.Subject, it.Room, it.Teacher}, "\x1f")
}

// Validate checks the canonical-form invariants for an item entering
// persistent storage.
func (it ScheduleItem) Validate() error {
	if _, ok := timeutil.CanonicalWeekday(it.Day); !ok || timeutil.WeekdayRank(it.Day) == 8 {
		return fmt.Errorf("invalid day %q", it.Day)
	}
	start, err := timeutil.MinutesSinceMidnight(it.StartTime)
	if err != nil {
		return fmt.Errorf("invalid start time: %w", err)
	}
	end, err := timeutil.MinutesSinceMidnight(it.EndTime)
	if err != nil {
		return fmt.Errorf("invalid end time: %w", err)
	}
	if end <= start {
		return fmt.Errorf("end time %s is not after start time %s", it.EndTime, it.StartTime)
	}
	if strings.TrimSpace(it.Subject) == "" {
		return fmt.Errorf("subject is empty")
	}
	return nil
}

// TriggerKind labels which of an item's notifications a trigger fires.
type TriggerKind string

const (
	TriggerLead  TriggerKind = "lead"
	TriggerStart TriggerKind = "start"
	TriggerEnd   TriggerKind = "end"
)

// TriggerDescriptor is an ephemeral weekly-recurring firing spec handed to
// the notification service. Weekday uses the service's 1-based Sunday-first
// convention (1=Sunday .. 7=Saturday). Never persisted; regenerated on every
// (re)schedule.
type TriggerDescriptor struct {
	Kind    TriggerKind
	Weekday int // 1-7, 1=Sunday
	Hour    int // 0-23
	Minute  int // 0-59
	Repeats bool
}

// ParseTruthy reports whether a free-text cell value means "true".
// Accepts {1, true, yes, y} case-insensitively; everything else is false.
func ParseTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
