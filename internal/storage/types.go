package storage

import (
	"context"
	"errors"
	"time"

	"acadsched/internal/model"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrNotFound = errors.New("item not found")
)

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file (default)
//   - "memory": in-process map backend (tests, throwaway runs)
//
// If Driver is empty, sqlite is used.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the persistence API used by core/services.
//
// InsertMany is all-or-nothing: either every item is persisted (and its
// assigned id written back) or none are.
type Store interface {
	Get(ctx context.Context, id int64) (model.ScheduleItem, error)
	List(ctx context.Context) ([]model.ScheduleItem, error)
	Insert(ctx context.Context, item *model.ScheduleItem) error
	InsertMany(ctx context.Context, items []*model.ScheduleItem) error
	Update(ctx context.Context, item model.ScheduleItem) error
	Delete(ctx context.Context, id int64) error

	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error

	Close() error
}
