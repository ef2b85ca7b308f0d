package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"acadsched/internal/importer"
	"acadsched/internal/model"
	"acadsched/internal/pdf"
	"acadsched/internal/timetable"
	logx "acadsched/pkg/logx"
)

// schedulePar caps how many items arm their reminders concurrently after a
// batch insert.
const schedulePar = 4

// ErrUnreadableDocument marks a document that yielded no extractable text at
// all, as opposed to text that simply matched no entries.
var ErrUnreadableDocument = errors.New("could not extract text from the document")

// ImportResult summarizes one completed import batch.
type ImportResult struct {
	Inserted         int
	RemindersArmed   int
	PermissionDenied bool
}

// ImportJSON imports a JSON schedule payload. Validation covers the whole
// batch before anything is persisted.
func (a *App) ImportJSON(ctx context.Context, data []byte) (ImportResult, error) {
	items, err := importer.ParseJSON(data)
	if err != nil {
		return ImportResult{}, err
	}
	for i := range items {
		items[i].RemindersEnabled = a.rem.Enabled()
	}
	return a.persistBatch(ctx, items)
}

// ImportCSV imports tabular rows from a CSV stream.
func (a *App) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	rows, err := importer.ReadCSVRows(r)
	if err != nil {
		return ImportResult{}, err
	}
	items, err := importer.ConvertRows(rows, a.defaultMeridiem())
	if err != nil {
		return ImportResult{}, err
	}
	return a.persistBatch(ctx, items)
}

// ImportPDF extracts a timetable document and imports the entries matching
// the requested semester/section. The semester is free text; a digit 1-8
// anywhere in it selects the semester, anything else fails fast.
//
// A document with no extractable text returns ErrUnreadableDocument; one
// whose text matches no entries returns timetable.ErrNoLectures. The caller
// can suggest a different remedy for each.
func (a *App) ImportPDF(ctx context.Context, data []byte, semesterText, section string) (ImportResult, error) {
	semester, err := timetable.ParseSemester(semesterText)
	if err != nil {
		return ImportResult{}, err
	}

	tokens := pdf.ExtractTokens(data)
	if len(tokens) == 0 {
		return ImportResult{}, ErrUnreadableDocument
	}

	items, err := timetable.Parse(tokens, semester, section, a.currentHeuristics())
	if err != nil {
		return ImportResult{}, err
	}
	if len(items) == 0 {
		return ImportResult{}, timetable.ErrNoLectures
	}

	for i := range items {
		items[i].RemindersEnabled = a.rem.Enabled()
	}
	return a.persistBatch(ctx, items)
}

// persistBatch validates every item, stores them in one all-or-nothing
// write, then arms reminders per item. Reminder ids are attached to their
// items before the batch result is returned.
func (a *App) persistBatch(ctx context.Context, items []model.ScheduleItem) (ImportResult, error) {
	ptrs := make([]*model.ScheduleItem, len(items))
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return ImportResult{}, fmt.Errorf("item %d: %w", i+1, err)
		}
		ptrs[i] = &items[i]
	}

	if err := a.store.InsertMany(ctx, ptrs); err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Inserted: len(ptrs)}
	permDenied := !a.notifier.CheckPermission().Allowed()

	var wg sync.WaitGroup
	var mu sync.Mutex
	sem := make(chan struct{}, schedulePar)
	for _, it := range ptrs {
		if !it.RemindersEnabled {
			continue
		}
		if permDenied {
			it.RemindersEnabled = false
			res.PermissionDenied = true
			if err := a.store.Update(ctx, *it); err != nil {
				a.log.Warn("persisting reminder flag failed", logx.Int64("id", it.ID), logx.Err(err))
			}
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(it *model.ScheduleItem) {
			defer wg.Done()
			defer func() { <-sem }()
			ids, err := a.rem.Schedule(ctx, *it)
			if err != nil {
				a.log.Warn("scheduling reminders failed", logx.Int64("id", it.ID), logx.Err(err))
				return
			}
			it.ReminderIDs = ids
			if len(ids) == 0 {
				it.RemindersEnabled = false
			}
			if err := a.store.Update(ctx, *it); err != nil {
				a.log.Warn("persisting reminder ids failed", logx.Int64("id", it.ID), logx.Err(err))
				return
			}
			if len(ids) > 0 {
				mu.Lock()
				res.RemindersArmed++
				mu.Unlock()
			}
		}(it)
	}
	wg.Wait()

	return res, nil
}

// AddItem validates and stores one manually entered item, arming reminders
// when requested.
func (a *App) AddItem(ctx context.Context, item model.ScheduleItem) (model.ScheduleItem, error) {
	if err := item.Validate(); err != nil {
		return model.ScheduleItem{}, err
	}
	if err := a.store.Insert(ctx, &item); err != nil {
		return model.ScheduleItem{}, err
	}
	if item.RemindersEnabled {
		if err := a.scheduleAndPersist(ctx, &item); err != nil {
			return item, err
		}
	}
	return item, nil
}

// UpdateItem applies an edit. Any previously scheduled reminder ids are
// cancelled before new ones are issued, so stale triggers never outlive the
// edit.
func (a *App) UpdateItem(ctx context.Context, item model.ScheduleItem) (model.ScheduleItem, error) {
	if err := item.Validate(); err != nil {
		return model.ScheduleItem{}, err
	}
	prev, err := a.store.Get(ctx, item.ID)
	if err != nil {
		return model.ScheduleItem{}, err
	}

	a.rem.CancelAll(prev.ReminderIDs)
	item.ReminderIDs = nil

	if item.RemindersEnabled {
		ids, err := a.rem.Schedule(ctx, item)
		if err != nil {
			return model.ScheduleItem{}, err
		}
		item.ReminderIDs = ids
		if len(ids) == 0 {
			item.RemindersEnabled = false
		}
	}
	if err := a.store.Update(ctx, item); err != nil {
		return model.ScheduleItem{}, err
	}
	return item, nil
}

// ClearItems removes every stored item, cancelling their reminders first.
// Returns how many items were removed.
func (a *App) ClearItems(ctx context.Context) (int, error) {
	items, err := a.store.List(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, it := range items {
		a.rem.CancelAll(it.ReminderIDs)
		if err := a.store.Delete(ctx, it.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// DeleteItem cancels the item's reminders, then removes it.
func (a *App) DeleteItem(ctx context.Context, id int64) error {
	item, err := a.store.Get(ctx, id)
	if err != nil {
		return err
	}
	a.rem.CancelAll(item.ReminderIDs)
	return a.store.Delete(ctx, id)
}

// SetReminders toggles an item's reminders. Turning them on under a denied
// permission leaves them off and reports false.
func (a *App) SetReminders(ctx context.Context, id int64, enabled bool) (bool, error) {
	item, err := a.store.Get(ctx, id)
	if err != nil {
		return false, err
	}

	a.rem.CancelAll(item.ReminderIDs)
	item.ReminderIDs = nil
	item.RemindersEnabled = enabled

	if enabled {
		ids, err := a.rem.Schedule(ctx, item)
		if err != nil {
			return false, err
		}
		item.ReminderIDs = ids
		if len(ids) == 0 {
			item.RemindersEnabled = false
		}
	}
	if err := a.store.Update(ctx, item); err != nil {
		return false, err
	}
	return item.RemindersEnabled, nil
}

// scheduleAndPersist arms triggers for one item and writes the ids back.
func (a *App) scheduleAndPersist(ctx context.Context, item *model.ScheduleItem) error {
	ids, err := a.rem.Schedule(ctx, *item)
	if err != nil {
		return err
	}
	item.ReminderIDs = ids
	if len(ids) == 0 {
		item.RemindersEnabled = false
	}
	return a.store.Update(ctx, *item)
}
