package ics

import (
	"strings"
	"testing"
	"time"

	"acadsched/internal/model"
)

func TestExport(t *testing.T) {
	t.Parallel()
	items := []model.ScheduleItem{
		{
			ID: 1, Day: "Monday", StartTime: "09:00", EndTime: "10:20",
			Subject: "Operating Systems", Room: "CR-12", Teacher: "Dr. Ahmed",
		},
		{
			ID: 2, Day: "Tuesday", StartTime: "11:00", EndTime: "12:20",
			Subject: "Data Structures", Teacher: model.TeacherTBA,
		},
	}
	now := time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC) // a Wednesday

	out := Export(items, now)

	if !strings.Contains(out, "BEGIN:VCALENDAR") || !strings.Contains(out, "END:VCALENDAR") {
		t.Fatalf("not a calendar:\n%s", out)
	}
	if got := strings.Count(out, "BEGIN:VEVENT"); got != 2 {
		t.Fatalf("got %d events, want 2:\n%s", got, out)
	}
	if !strings.Contains(out, "UID:item-1@acadsched") {
		t.Fatalf("missing uid:\n%s", out)
	}
	if !strings.Contains(out, "SUMMARY:Operating Systems") {
		t.Fatalf("missing summary:\n%s", out)
	}
	if !strings.Contains(out, "LOCATION:CR-12") {
		t.Fatalf("missing location:\n%s", out)
	}
	if !strings.Contains(out, "RRULE:FREQ=WEEKLY;BYDAY=MO") || !strings.Contains(out, "BYDAY=TU") {
		t.Fatalf("missing weekly rrule:\n%s", out)
	}
	// Next Monday after Wednesday 2026-01-07 is the 12th.
	if !strings.Contains(out, "DTSTART:20260112T090000Z") {
		t.Fatalf("unexpected start:\n%s", out)
	}
	if !strings.Contains(out, "DTEND:20260112T102000Z") {
		t.Fatalf("unexpected end:\n%s", out)
	}
	// A TBA teacher never leaks into the description.
	if strings.Contains(out, "DESCRIPTION:TBA") {
		t.Fatalf("placeholder teacher exported:\n%s", out)
	}
}

func TestExportSkipsMalformed(t *testing.T) {
	t.Parallel()
	items := []model.ScheduleItem{
		{ID: 1, Day: "Nope", StartTime: "09:00", EndTime: "10:00", Subject: "Bad day"},
		{ID: 2, Day: "Monday", StartTime: "10:00", EndTime: "09:00", Subject: "Backwards"},
		{ID: 3, Day: "Monday", StartTime: "09:00", EndTime: "10:20", Subject: "Good"},
	}
	out := Export(items, time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC))
	if got := strings.Count(out, "BEGIN:VEVENT"); got != 1 {
		t.Fatalf("got %d events, want 1:\n%s", got, out)
	}
	if !strings.Contains(out, "SUMMARY:Good") {
		t.Fatalf("wrong event survived:\n%s", out)
	}
}
