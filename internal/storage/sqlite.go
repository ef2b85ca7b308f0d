package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"acadsched/internal/model"
	logx "acadsched/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const itemCols = `id, day, start_time, end_time, subject, room, teacher, notes, done, reminders_enabled, reminder_ids`

func (s *sqliteStore) Get(ctx context.Context, id int64) (model.ScheduleItem, error) {
	if s == nil || s.db == nil {
		return model.ScheduleItem{}, ErrDisabled
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+itemCols+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScheduleItem{}, ErrNotFound
	}
	return it, err
}

func (s *sqliteStore) List(ctx context.Context) ([]model.ScheduleItem, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemCols+` FROM items ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ScheduleItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Insert(ctx context.Context, item *model.ScheduleItem) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO items(day, start_time, end_time, subject, room, teacher, notes, done, reminders_enabled, reminder_ids)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		item.Day, item.StartTime, item.EndTime, item.Subject,
		nullStr(item.Room), nullStr(item.Teacher), nullStr(item.Notes),
		boolInt(item.Done), boolInt(item.RemindersEnabled), marshalIDs(item.ReminderIDs),
	)
	if err != nil {
		return err
	}
	item.ID, err = res.LastInsertId()
	return err
}

func (s *sqliteStore) InsertMany(ctx context.Context, items []*model.ScheduleItem) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, item := range items {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO items(day, start_time, end_time, subject, room, teacher, notes, done, reminders_enabled, reminder_ids)
			 VALUES(?,?,?,?,?,?,?,?,?,?)`,
			item.Day, item.StartTime, item.EndTime, item.Subject,
			nullStr(item.Room), nullStr(item.Teacher), nullStr(item.Notes),
			boolInt(item.Done), boolInt(item.RemindersEnabled), marshalIDs(item.ReminderIDs),
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if item.ID, err = res.LastInsertId(); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) Update(ctx context.Context, item model.ScheduleItem) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET day=?, start_time=?, end_time=?, subject=?, room=?, teacher=?, notes=?, done=?, reminders_enabled=?, reminder_ids=?
		 WHERE id=?`,
		item.Day, item.StartTime, item.EndTime, item.Subject,
		nullStr(item.Room), nullStr(item.Teacher), nullStr(item.Notes),
		boolInt(item.Done), boolInt(item.RemindersEnabled), marshalIDs(item.ReminderIDs),
		item.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, id int64) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	return err
}

func (s *sqliteStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, ErrDisabled
	}
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *sqliteStore) SetSetting(ctx context.Context, key, value string) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings(key, value) VALUES(?,?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner) (model.ScheduleItem, error) {
	var it model.ScheduleItem
	var room, teacher, notes, ids sql.NullString
	var done, enabled int
	err := r.Scan(&it.ID, &it.Day, &it.StartTime, &it.EndTime, &it.Subject,
		&room, &teacher, &notes, &done, &enabled, &ids)
	if err != nil {
		return model.ScheduleItem{}, err
	}
	it.Room = room.String
	it.Teacher = teacher.String
	it.Notes = notes.String
	it.Done = done != 0
	it.RemindersEnabled = enabled != 0
	if ids.Valid && ids.String != "" {
		if err := json.Unmarshal([]byte(ids.String), &it.ReminderIDs); err != nil {
			// Treat a corrupt id list as empty; next reschedule rewrites it.
			it.ReminderIDs = nil
		}
	}
	return it, nil
}

func marshalIDs(ids []string) any {
	if len(ids) == 0 {
		return nil
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return nil
	}
	return string(b)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
