package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"acadsched/internal/model"
	"acadsched/internal/notify"
	"acadsched/internal/reminder"
	"acadsched/internal/storage"
	"acadsched/internal/timetable"
	logx "acadsched/pkg/logx"
)

type recordingScheduler struct {
	scheduled []string
	cancelled []string
	nextID    int
}

func (r *recordingScheduler) ScheduleTrigger(_ context.Context, trig model.TriggerDescriptor, _ notify.Notification) (string, error) {
	r.nextID++
	id := fmt.Sprintf("trig-%d", r.nextID)
	r.scheduled = append(r.scheduled, id)
	return id, nil
}

func (r *recordingScheduler) CancelTrigger(id string) {
	r.cancelled = append(r.cancelled, id)
}

type stubNotifier struct {
	perm notify.Permission
}

func (s *stubNotifier) Send(context.Context, notify.Notification) error { return nil }
func (s *stubNotifier) CheckPermission() notify.Permission              { return s.perm }
func (s *stubNotifier) RequestPermission(context.Context) (notify.Permission, error) {
	return s.perm, nil
}

func newTestApp(t *testing.T, perm notify.Permission, remindersOn bool) (*App, *recordingScheduler) {
	t.Helper()
	sched := &recordingScheduler{}
	notifier := &stubNotifier{perm: perm}
	rem := reminder.New(reminder.Config{Enabled: remindersOn, LeadMinutes: 15}, sched, notifier, logx.Nop())
	return &App{
		log:        logx.Nop(),
		store:      storage.NewMemory(),
		notifier:   notifier,
		rem:        rem,
		heuristics: timetable.DefaultHeuristics(),
	}, sched
}

const jsonPayload = `[
	{"day":"Monday","subject":"Operating Systems","room":"CR-12","teacher":"Dr. Ahmed","startTime":"09:00","endTime":"10:20"},
	{"day":"Wednesday","subject":"Data Structures","room":"CS Lab","teacher":"Mr. Bilal","startTime":"11:00","endTime":"12:20"}
]`

func TestImportJSONArmsReminders(t *testing.T) {
	t.Parallel()
	app, sched := newTestApp(t, notify.PermissionGranted, true)
	ctx := context.Background()

	res, err := app.ImportJSON(ctx, []byte(jsonPayload))
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if res.Inserted != 2 || res.RemindersArmed != 2 || res.PermissionDenied {
		t.Fatalf("result = %+v", res)
	}
	// 3 triggers per item: lead, start, end.
	if len(sched.scheduled) != 6 {
		t.Fatalf("armed %d triggers, want 6", len(sched.scheduled))
	}

	items, err := app.store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, it := range items {
		if !it.RemindersEnabled || len(it.ReminderIDs) != 3 {
			t.Fatalf("persisted item missing reminder state: %+v", it)
		}
	}
}

func TestImportJSONPermissionDenied(t *testing.T) {
	t.Parallel()
	app, sched := newTestApp(t, notify.PermissionDenied, true)
	ctx := context.Background()

	res, err := app.ImportJSON(ctx, []byte(jsonPayload))
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if res.Inserted != 2 || !res.PermissionDenied || res.RemindersArmed != 0 {
		t.Fatalf("result = %+v", res)
	}
	if len(sched.scheduled) != 0 {
		t.Fatalf("triggers armed despite denied permission: %v", sched.scheduled)
	}

	items, _ := app.store.List(ctx)
	for _, it := range items {
		if it.RemindersEnabled {
			t.Fatalf("item kept reminders on under denied permission: %+v", it)
		}
	}
}

func TestImportJSONRemindersOff(t *testing.T) {
	t.Parallel()
	app, sched := newTestApp(t, notify.PermissionGranted, false)

	res, err := app.ImportJSON(context.Background(), []byte(jsonPayload))
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if res.Inserted != 2 || res.RemindersArmed != 0 || res.PermissionDenied {
		t.Fatalf("result = %+v", res)
	}
	if len(sched.scheduled) != 0 {
		t.Fatalf("triggers armed with reminders disabled: %v", sched.scheduled)
	}
}

func TestImportCSV(t *testing.T) {
	t.Parallel()
	app, _ := newTestApp(t, notify.PermissionGranted, true)

	csv := "Subject,Day,Start Time,End Time,Room,Reminder\n" +
		"Gym,Tuesday,5:00 PM,6:00 PM,Fitness Center,yes\n"
	res, err := app.ImportCSV(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if res.Inserted != 1 || res.RemindersArmed != 1 {
		t.Fatalf("result = %+v", res)
	}

	items, _ := app.store.List(context.Background())
	if items[0].StartTime != "17:00" || items[0].EndTime != "18:00" {
		t.Fatalf("times not normalized: %+v", items[0])
	}
}

func TestPersistBatchAllOrNothing(t *testing.T) {
	t.Parallel()
	app, _ := newTestApp(t, notify.PermissionGranted, true)
	ctx := context.Background()

	items := []model.ScheduleItem{
		{Day: "Monday", StartTime: "09:00", EndTime: "10:20", Subject: "Good"},
		{Day: "Monday", StartTime: "10:00", EndTime: "09:00", Subject: "Backwards"},
	}
	if _, err := app.persistBatch(ctx, items); err == nil {
		t.Fatal("expected validation error")
	}

	stored, _ := app.store.List(ctx)
	if len(stored) != 0 {
		t.Fatalf("partial batch persisted: %+v", stored)
	}
}

func TestImportPDFSemesterFastFail(t *testing.T) {
	t.Parallel()
	app, _ := newTestApp(t, notify.PermissionGranted, true)

	_, err := app.ImportPDF(context.Background(), []byte("%PDF-1.4"), "ninth", "A")
	if err == nil || errors.Is(err, timetable.ErrNoLectures) {
		t.Fatalf("got %v, want semester parse error before extraction", err)
	}
}

func TestImportPDFUnreadableDocument(t *testing.T) {
	t.Parallel()
	app, _ := newTestApp(t, notify.PermissionGranted, true)

	_, err := app.ImportPDF(context.Background(), []byte("%PDF-1.4 no streams here"), "3", "A")
	if !errors.Is(err, ErrUnreadableDocument) {
		t.Fatalf("got %v, want ErrUnreadableDocument", err)
	}
	if errors.Is(err, timetable.ErrNoLectures) {
		t.Fatal("unreadable document must not read as a no-lectures result")
	}
}

func TestImportPDFNoLectures(t *testing.T) {
	t.Parallel()
	app, _ := newTestApp(t, notify.PermissionGranted, true)

	// Readable text that matches no timetable entries.
	doc := []byte("%PDF-1.4\nstream\nBT (Monday) Tj ET\nendstream\n")
	_, err := app.ImportPDF(context.Background(), doc, "3", "A")
	if !errors.Is(err, timetable.ErrNoLectures) {
		t.Fatalf("got %v, want ErrNoLectures", err)
	}
	if errors.Is(err, ErrUnreadableDocument) {
		t.Fatal("no-lectures result must not read as an unreadable document")
	}
}

func TestUpdateItemReplacesTriggers(t *testing.T) {
	t.Parallel()
	app, sched := newTestApp(t, notify.PermissionGranted, true)
	ctx := context.Background()

	item, err := app.AddItem(ctx, model.ScheduleItem{
		Day: "Monday", StartTime: "09:00", EndTime: "10:20",
		Subject: "Operating Systems", RemindersEnabled: true,
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	oldIDs := append([]string(nil), item.ReminderIDs...)
	if len(oldIDs) != 3 {
		t.Fatalf("got %d ids after add, want 3", len(oldIDs))
	}

	item.StartTime, item.EndTime = "10:00", "11:20"
	updated, err := app.UpdateItem(ctx, item)
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	for _, id := range oldIDs {
		found := false
		for _, c := range sched.cancelled {
			if c == id {
				found = true
			}
		}
		if !found {
			t.Fatalf("stale trigger %s not cancelled (cancelled: %v)", id, sched.cancelled)
		}
	}
	for _, id := range updated.ReminderIDs {
		for _, old := range oldIDs {
			if id == old {
				t.Fatalf("updated item reuses stale id %s", id)
			}
		}
	}
}

func TestSetReminders(t *testing.T) {
	t.Parallel()
	app, sched := newTestApp(t, notify.PermissionGranted, true)
	ctx := context.Background()

	item, err := app.AddItem(ctx, model.ScheduleItem{
		Day: "Friday", StartTime: "14:00", EndTime: "15:20",
		Subject: "Networks", RemindersEnabled: true,
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	ids := append([]string(nil), item.ReminderIDs...)

	on, err := app.SetReminders(ctx, item.ID, false)
	if err != nil || on {
		t.Fatalf("SetReminders(false) = (%v, %v)", on, err)
	}
	if len(sched.cancelled) < len(ids) {
		t.Fatalf("triggers not cancelled on toggle off: %v", sched.cancelled)
	}
	got, _ := app.store.Get(ctx, item.ID)
	if got.RemindersEnabled || len(got.ReminderIDs) != 0 {
		t.Fatalf("toggle off not persisted: %+v", got)
	}

	on, err = app.SetReminders(ctx, item.ID, true)
	if err != nil || !on {
		t.Fatalf("SetReminders(true) = (%v, %v)", on, err)
	}
	got, _ = app.store.Get(ctx, item.ID)
	if !got.RemindersEnabled || len(got.ReminderIDs) != 3 {
		t.Fatalf("toggle on not persisted: %+v", got)
	}
}

func TestSetRemindersDeniedPermission(t *testing.T) {
	t.Parallel()
	app, _ := newTestApp(t, notify.PermissionDenied, true)
	ctx := context.Background()

	item := model.ScheduleItem{Day: "Monday", StartTime: "09:00", EndTime: "10:20", Subject: "OS"}
	if err := app.store.Insert(ctx, &item); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	on, err := app.SetReminders(ctx, item.ID, true)
	if err != nil {
		t.Fatalf("SetReminders: %v", err)
	}
	if on {
		t.Fatal("reminders reported on despite denied permission")
	}
	got, _ := app.store.Get(ctx, item.ID)
	if got.RemindersEnabled {
		t.Fatalf("persisted item kept reminders on: %+v", got)
	}
}

func TestClearItems(t *testing.T) {
	t.Parallel()
	app, sched := newTestApp(t, notify.PermissionGranted, true)
	ctx := context.Background()

	if _, err := app.ImportJSON(ctx, []byte(jsonPayload)); err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	armed := len(sched.scheduled)

	n, err := app.ClearItems(ctx)
	if err != nil {
		t.Fatalf("ClearItems: %v", err)
	}
	if n != 2 {
		t.Fatalf("removed %d items, want 2", n)
	}
	if len(sched.cancelled) != armed {
		t.Fatalf("cancelled %d triggers, want %d", len(sched.cancelled), armed)
	}
	items, _ := app.store.List(ctx)
	if len(items) != 0 {
		t.Fatalf("items left after clear: %+v", items)
	}
}

func TestSetDefaultMeridiem(t *testing.T) {
	t.Parallel()
	app, _ := newTestApp(t, notify.PermissionGranted, true)
	ctx := context.Background()

	if err := app.SetDefaultMeridiem(ctx, "pm"); err != nil {
		t.Fatalf("SetDefaultMeridiem: %v", err)
	}
	if got := app.defaultMeridiem(); got != "PM" {
		t.Fatalf("defaultMeridiem = %q, want PM", got)
	}
	if v, ok, _ := app.store.GetSetting(ctx, SettingDefaultMeridiem); !ok || v != "PM" {
		t.Fatalf("setting not persisted: (%q, %v)", v, ok)
	}

	if err := app.SetDefaultMeridiem(ctx, "noon"); err == nil {
		t.Fatal("expected error for invalid meridiem")
	}

	// The configured default flows into the tabular importer.
	csv := "Subject,Day,Start,End\nLab,Thu,2:00,3:30\n"
	if _, err := app.ImportCSV(ctx, strings.NewReader(csv)); err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	items, _ := app.store.List(ctx)
	if items[0].StartTime != "14:00" {
		t.Fatalf("meridiem default not applied: %+v", items[0])
	}
}

func TestDeleteItemCancelsTriggers(t *testing.T) {
	t.Parallel()
	app, sched := newTestApp(t, notify.PermissionGranted, true)
	ctx := context.Background()

	item, err := app.AddItem(ctx, model.ScheduleItem{
		Day: "Monday", StartTime: "09:00", EndTime: "10:20",
		Subject: "Operating Systems", RemindersEnabled: true,
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := app.DeleteItem(ctx, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if len(sched.cancelled) != len(item.ReminderIDs) {
		t.Fatalf("cancelled %d triggers, want %d", len(sched.cancelled), len(item.ReminderIDs))
	}
	if _, err := app.store.Get(ctx, item.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
}
