package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"acadsched/internal/model"
	"acadsched/internal/notify"
	logx "acadsched/pkg/logx"
)

// fakeScheduler records every call in order so tests can assert cancellation
// happens before any new trigger is armed.
type fakeScheduler struct {
	calls   []string
	nextID  int
	failFor model.TriggerKind
}

func (f *fakeScheduler) ScheduleTrigger(_ context.Context, trig model.TriggerDescriptor, _ notify.Notification) (string, error) {
	f.calls = append(f.calls, "schedule:"+string(trig.Kind))
	if f.failFor != "" && trig.Kind == f.failFor {
		return "", errors.New("service unavailable")
	}
	f.nextID++
	return fmt.Sprintf("trig-%d", f.nextID), nil
}

func (f *fakeScheduler) CancelTrigger(id string) {
	f.calls = append(f.calls, "cancel:"+id)
}

type fakeNotifier struct {
	perm notify.Permission
}

func (f *fakeNotifier) Send(context.Context, notify.Notification) error { return nil }
func (f *fakeNotifier) CheckPermission() notify.Permission              { return f.perm }
func (f *fakeNotifier) RequestPermission(context.Context) (notify.Permission, error) {
	return f.perm, nil
}

func testItem() model.ScheduleItem {
	return model.ScheduleItem{
		Day:       "Monday",
		StartTime: "09:00",
		EndTime:   "10:20",
		Subject:   "Operating Systems",
		Room:      "CR-12",
	}
}

func TestScheduleCancelsBeforeRearming(t *testing.T) {
	t.Parallel()
	sched := &fakeScheduler{}
	svc := New(Config{Enabled: true, LeadMinutes: 15}, sched, &fakeNotifier{perm: notify.PermissionGranted}, logx.Nop())

	item := testItem()
	item.ReminderIDs = []string{"old-1", "old-2", "old-3"}

	ids, err := svc.Schedule(context.Background(), item)
	if err != nil {
		t.Fatalf("Schedule error: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("got %d ids, want 3", len(ids))
	}

	want := []string{
		"cancel:old-1", "cancel:old-2", "cancel:old-3",
		"schedule:lead", "schedule:start", "schedule:end",
	}
	if len(sched.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", sched.calls, want)
	}
	for i, c := range sched.calls {
		if c != want[i] {
			t.Fatalf("call %d = %q, want %q (full: %v)", i, c, want[i], sched.calls)
		}
	}
}

func TestScheduleDisabled(t *testing.T) {
	t.Parallel()
	sched := &fakeScheduler{}
	svc := New(Config{Enabled: false}, sched, &fakeNotifier{perm: notify.PermissionGranted}, logx.Nop())

	item := testItem()
	item.ReminderIDs = []string{"old-1"}

	ids, err := svc.Schedule(context.Background(), item)
	if err != nil || ids != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", ids, err)
	}
	// Stale ids are still cancelled even when scheduling is declined.
	if len(sched.calls) != 1 || sched.calls[0] != "cancel:old-1" {
		t.Fatalf("calls = %v", sched.calls)
	}
}

func TestSchedulePermissionDenied(t *testing.T) {
	t.Parallel()
	sched := &fakeScheduler{}
	svc := New(Config{Enabled: true, LeadMinutes: 15}, sched, &fakeNotifier{perm: notify.PermissionDenied}, logx.Nop())

	ids, err := svc.Schedule(context.Background(), testItem())
	if err != nil || ids != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", ids, err)
	}
	for _, c := range sched.calls {
		if strings.HasPrefix(c, "schedule:") {
			t.Fatalf("trigger armed despite denied permission: %v", sched.calls)
		}
	}
}

func TestScheduleProvisionalCountsAsAllowed(t *testing.T) {
	t.Parallel()
	sched := &fakeScheduler{}
	svc := New(Config{Enabled: true}, sched, &fakeNotifier{perm: notify.PermissionProvisional}, logx.Nop())

	ids, err := svc.Schedule(context.Background(), testItem())
	if err != nil {
		t.Fatalf("Schedule error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2 (start+end, zero lead)", len(ids))
	}
}

func TestSchedulePartialFailureKeepsOthers(t *testing.T) {
	t.Parallel()
	sched := &fakeScheduler{failFor: model.TriggerStart}
	svc := New(Config{Enabled: true, LeadMinutes: 10}, sched, &fakeNotifier{perm: notify.PermissionGranted}, logx.Nop())

	ids, err := svc.Schedule(context.Background(), testItem())
	if err != nil {
		t.Fatalf("Schedule error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2 (lead and end survive)", len(ids))
	}
}

func TestScheduleUnknownDay(t *testing.T) {
	t.Parallel()
	sched := &fakeScheduler{}
	svc := New(Config{Enabled: true}, sched, &fakeNotifier{perm: notify.PermissionGranted}, logx.Nop())

	item := testItem()
	item.Day = "Someday"
	ids, err := svc.Schedule(context.Background(), item)
	if err != nil || ids != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", ids, err)
	}
}

func TestApplyChangesLeadOnNextSchedule(t *testing.T) {
	t.Parallel()
	sched := &fakeScheduler{}
	svc := New(Config{Enabled: true, LeadMinutes: 0}, sched, &fakeNotifier{perm: notify.PermissionGranted}, logx.Nop())

	ids, _ := svc.Schedule(context.Background(), testItem())
	if len(ids) != 2 {
		t.Fatalf("got %d ids before Apply, want 2", len(ids))
	}

	svc.Apply(Config{Enabled: true, LeadMinutes: 20})
	ids, _ = svc.Schedule(context.Background(), testItem())
	if len(ids) != 3 {
		t.Fatalf("got %d ids after Apply, want 3", len(ids))
	}
	if svc.LeadMinutes() != 20 {
		t.Fatalf("LeadMinutes = %d, want 20", svc.LeadMinutes())
	}
}

func TestBuildNotificationBodies(t *testing.T) {
	t.Parallel()
	item := testItem()

	n := buildNotification(item, model.TriggerDescriptor{Kind: model.TriggerLead}, 15)
	if n.Title != "Operating Systems" || n.Body != "Starts in 15 min at 09:00 (CR-12)" {
		t.Fatalf("lead notification = %+v", n)
	}

	n = buildNotification(item, model.TriggerDescriptor{Kind: model.TriggerStart}, 15)
	if n.Body != "Starting now at 09:00 (CR-12)" {
		t.Fatalf("start notification = %+v", n)
	}

	n = buildNotification(item, model.TriggerDescriptor{Kind: model.TriggerEnd}, 15)
	if n.Body != "Finished at 10:20" {
		t.Fatalf("end notification = %+v", n)
	}

	item.Room = ""
	n = buildNotification(item, model.TriggerDescriptor{Kind: model.TriggerStart}, 0)
	if n.Body != "Starting now at 09:00 (no room set)" {
		t.Fatalf("roomless notification = %+v", n)
	}
}
