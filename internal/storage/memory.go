package storage

import (
	"context"
	"sort"
	"sync"

	"acadsched/internal/model"
)

// memStore is the map-backed driver. It mirrors sqlite semantics closely
// enough for tests and throwaway runs, including all-or-nothing InsertMany.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	items    map[int64]model.ScheduleItem
	settings map[string]string
}

// NewMemory returns an empty in-process store.
func NewMemory() Store {
	return &memStore{
		nextID:   1,
		items:    map[int64]model.ScheduleItem{},
		settings: map[string]string{},
	}
}

func (s *memStore) Get(_ context.Context, id int64) (model.ScheduleItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return model.ScheduleItem{}, ErrNotFound
	}
	return cloneItem(it), nil
}

func (s *memStore) List(_ context.Context) ([]model.ScheduleItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ScheduleItem, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, cloneItem(it))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) Insert(_ context.Context, item *model.ScheduleItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.nextID
	s.nextID++
	s.items[item.ID] = cloneItem(*item)
	return nil
}

func (s *memStore) InsertMany(_ context.Context, items []*model.ScheduleItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		item.ID = s.nextID
		s.nextID++
		s.items[item.ID] = cloneItem(*item)
	}
	return nil
}

func (s *memStore) Update(_ context.Context, item model.ScheduleItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; !ok {
		return ErrNotFound
	}
	s.items[item.ID] = cloneItem(item)
	return nil
}

func (s *memStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *memStore) GetSetting(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[key]
	return v, ok, nil
}

func (s *memStore) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

func (s *memStore) Close() error { return nil }

func cloneItem(it model.ScheduleItem) model.ScheduleItem {
	cp := it
	cp.ReminderIDs = append([]string(nil), it.ReminderIDs...)
	return cp
}
