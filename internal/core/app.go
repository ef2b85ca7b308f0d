// Package core wires the services together and owns the import/edit/delete
// orchestration around the store and the reminder scheduler.
package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"acadsched/internal/config"
	"acadsched/internal/notify"
	"acadsched/internal/reminder"
	"acadsched/internal/storage"
	"acadsched/internal/timetable"
	logx "acadsched/pkg/logx"
)

// Settings-store keys overriding the corresponding config values.
const (
	SettingLeadMinutes     = "reminder.lead_minutes"
	SettingDefaultMeridiem = "import.default_meridiem"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store    storage.Store
	notifier notify.Notifier
	cronSch  *reminder.CronScheduler
	rem      *reminder.Service

	mu         sync.Mutex
	heuristics timetable.Heuristics
	meridiem   string

	watchCancel context.CancelFunc
	watchWG     sync.WaitGroup
}

func NewApp(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	mgr.SetLogger(log)

	store, err := storage.Open(storageConfig(cfg), log)
	if err != nil {
		logSvc.Close()
		return nil, err
	}

	notifier, err := notify.New(notify.Config{
		Backend:    cfg.Notify.Backend,
		RatePerSec: cfg.Notify.RatePerSec,
		Telegram: notify.TelegramConfig{
			Token:  cfg.Notify.Telegram.Token,
			ChatID: cfg.Notify.Telegram.ChatID,
		},
	}, log)
	if err != nil {
		_ = store.Close()
		logSvc.Close()
		return nil, err
	}

	loc := reminder.ParseTimezone(cfg.Reminder.Timezone, log)
	cronSch := reminder.NewCronScheduler(notifier, loc, log)
	rem := reminder.New(reminderConfig(cfg), cronSch, notifier, log)

	app := &App{
		cfgMgr:     mgr,
		logSvc:     logSvc,
		log:        log,
		store:      store,
		notifier:   notifier,
		cronSch:    cronSch,
		rem:        rem,
		heuristics: buildHeuristics(cfg.Timetable),
		meridiem:   cfg.Import.DefaultMeridiem,
	}

	app.applySettingOverrides(context.Background(), cfg)

	return app, nil
}

// applySettingOverrides re-applies persisted settings on top of the config
// file; they win both at startup and after a hot reload.
func (a *App) applySettingOverrides(ctx context.Context, cfg *config.Config) {
	if v, ok, err := a.store.GetSetting(ctx, SettingLeadMinutes); err == nil && ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c := reminderConfig(cfg)
			c.LeadMinutes = n
			a.rem.Apply(c)
		}
	}
	if v, ok, err := a.store.GetSetting(ctx, SettingDefaultMeridiem); err == nil && ok {
		a.mu.Lock()
		a.meridiem = v
		a.mu.Unlock()
	}
}

func (a *App) Logger() logx.Logger          { return a.log }
func (a *App) Store() storage.Store         { return a.store }
func (a *App) Reminders() *reminder.Service { return a.rem }

// SetLeadMinutes persists a new lead time and applies it to future
// (re)schedules.
func (a *App) SetLeadMinutes(ctx context.Context, minutes int) error {
	if minutes < 0 {
		return fmt.Errorf("lead minutes must be >= 0")
	}
	if err := a.store.SetSetting(ctx, SettingLeadMinutes, strconv.Itoa(minutes)); err != nil {
		return err
	}
	a.rem.Apply(reminder.Config{Enabled: a.rem.Enabled(), LeadMinutes: minutes})
	return nil
}

// SetDefaultMeridiem persists the fallback AM/PM reading for meridiem-less
// tabular time cells. Empty means 24-hour.
func (a *App) SetDefaultMeridiem(ctx context.Context, meridiem string) error {
	m := strings.ToUpper(strings.TrimSpace(meridiem))
	switch m {
	case "", "AM", "PM":
	default:
		return fmt.Errorf("meridiem must be AM, PM or empty")
	}
	if err := a.store.SetSetting(ctx, SettingDefaultMeridiem, m); err != nil {
		return err
	}
	a.mu.Lock()
	a.meridiem = m
	a.mu.Unlock()
	return nil
}

// Start arms the trigger scheduler, re-schedules reminders for stored items
// and begins watching the config file.
func (a *App) Start(ctx context.Context) error {
	a.cronSch.Start(ctx)

	if err := a.rearmStored(ctx); err != nil {
		a.log.Warn("rearming stored reminders failed", logx.Err(err))
	}

	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel

	sub := a.cfgMgr.Subscribe(1)
	a.watchWG.Add(2)
	go func() {
		defer a.watchWG.Done()
		_ = a.cfgMgr.Watch(wctx)
	}()
	go func() {
		defer a.watchWG.Done()
		for {
			select {
			case <-wctx.Done():
				a.cfgMgr.Unsubscribe(sub)
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(cfg)
			}
		}
	}()

	a.log.Info("started", logx.Bool("reminders", a.rem.Enabled()))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.watchCancel != nil {
		a.watchCancel()
		a.watchWG.Wait()
		a.watchCancel = nil
	}
	a.cronSch.Stop(ctx)
	err := a.store.Close()
	a.logSvc.Close()
	return err
}

// applyConfig pushes a hot-reloaded config into the running services.
func (a *App) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	a.logSvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	a.rem.Apply(reminderConfig(cfg))

	a.mu.Lock()
	a.heuristics = buildHeuristics(cfg.Timetable)
	a.meridiem = cfg.Import.DefaultMeridiem
	a.mu.Unlock()

	a.applySettingOverrides(context.Background(), cfg)
}

// rearmStored re-issues triggers for every stored item with reminders on.
// Reminder ids are process-local, so a restart starts from a clean slate.
func (a *App) rearmStored(ctx context.Context) error {
	items, err := a.store.List(ctx)
	if err != nil {
		return err
	}
	for i := range items {
		it := items[i]
		if !it.RemindersEnabled {
			continue
		}
		it.ReminderIDs = nil
		if err := a.scheduleAndPersist(ctx, &it); err != nil {
			a.log.Warn("rearm failed", logx.Int64("id", it.ID), logx.Err(err))
		}
	}
	return nil
}

func (a *App) currentHeuristics() timetable.Heuristics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.heuristics
}

func (a *App) defaultMeridiem() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.meridiem
}

func storageConfig(cfg *config.Config) storage.Config {
	busy := time.Duration(0)
	if d, err := time.ParseDuration(cfg.Storage.BusyTimeout); err == nil {
		busy = d
	}
	path := cfg.Storage.Path
	if path == "" {
		path = "./acadsched.db"
	}
	return storage.Config{Driver: cfg.Storage.Driver, Path: path, BusyTimeout: busy}
}

func reminderConfig(cfg *config.Config) reminder.Config {
	return reminder.Config{
		Enabled:     cfg.Reminder.Enabled,
		LeadMinutes: cfg.Reminder.LeadMinutes,
		Timezone:    cfg.Reminder.Timezone,
	}
}

func buildHeuristics(tc config.TimetableConfig) timetable.Heuristics {
	h := timetable.DefaultHeuristics()
	if len(tc.RoomMarkers) > 0 {
		h.RoomMarkers = tc.RoomMarkers
	}
	if len(tc.TeacherPrefixes) > 0 {
		h.TeacherPrefixes = tc.TeacherPrefixes
	}
	if len(tc.SectionCodes) > 0 {
		h.SectionCodes = tc.SectionCodes
	}
	if len(tc.ControlTokens) > 0 {
		h.ControlTokens = tc.ControlTokens
	}
	return h
}
