// Package notify delivers reminder notifications. The Notifier interface is
// the boundary the reminder service schedules against; backends are console
// (always available) and telegram.
package notify

import (
	"context"
	"errors"

	"acadsched/internal/model"
	logx "acadsched/pkg/logx"
)

// Permission is the notification-delivery permission state.
type Permission int

const (
	PermissionDenied Permission = iota
	PermissionGranted
	PermissionProvisional
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionProvisional:
		return "provisional"
	default:
		return "denied"
	}
}

// Allowed reports whether scheduling may proceed under this permission.
// Provisional delivery is quieter but still delivery.
func (p Permission) Allowed() bool {
	return p == PermissionGranted || p == PermissionProvisional
}

// Notification is one outbound reminder message.
type Notification struct {
	Kind  model.TriggerKind
	Title string
	Body  string
}

// DisplayOptions control how a delivered notification presents itself.
type DisplayOptions struct {
	Banner bool
	Sound  bool
	Silent bool
}

// Display maps a notification to its display options: lead and start
// reminders alert, end reminders are silent.
func Display(n Notification) DisplayOptions {
	switch n.Kind {
	case model.TriggerLead:
		return DisplayOptions{Banner: true, Sound: true}
	case model.TriggerStart:
		return DisplayOptions{Banner: true, Sound: true}
	default:
		return DisplayOptions{Banner: true, Silent: true}
	}
}

// Config selects and configures the delivery backend.
type Config struct {
	Backend    string // "console" (default) or "telegram"
	RatePerSec int
	Telegram   TelegramConfig
}

type TelegramConfig struct {
	Token  string
	ChatID int64
}

// Notifier is the delivery boundary the reminder service depends on.
// Send failures are reported but callers treat them as "not delivered", never
// as fatal.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	CheckPermission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
}

var errUnknownBackend = errors.New("unknown notify backend")

// New builds the configured backend. An unconfigured telegram backend is not
// an error: it comes up with permission denied so reminder toggles degrade
// instead of failing.
func New(cfg Config, log logx.Logger) (Notifier, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch cfg.Backend {
	case "", "console":
		return newConsole(log), nil
	case "telegram":
		return newTelegram(cfg, log), nil
	default:
		return nil, errUnknownBackend
	}
}
