package config

// Config is the whole config file. Unknown fields are rejected so typos fail
// loudly at load time.
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Notify    NotifyConfig    `json:"notify,omitempty"`
	Reminder  ReminderConfig  `json:"reminder"`
	Import    ImportConfig    `json:"import,omitempty"`
	Timetable TimetableConfig `json:"timetable,omitempty"`
}

type LoggingConfig struct {
	Level   string `json:"level,omitempty"`
	Console *bool  `json:"console,omitempty"` // nil defaults to true
	File    struct {
		Enabled bool   `json:"enabled"`
		Path    string `json:"path,omitempty"`
	} `json:"file,omitempty"`
}

// ConsoleEnabled resolves the optional console flag (default on).
func (l LoggingConfig) ConsoleEnabled() bool {
	return l.Console == nil || *l.Console
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./acadsched.db" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type NotifyConfig struct {
	Backend    string         `json:"backend,omitempty"` // "console" (default) | "telegram"
	RatePerSec int            `json:"rate_per_sec,omitempty"`
	Telegram   TelegramConfig `json:"telegram,omitempty"`
}

type TelegramConfig struct {
	Token  string `json:"token,omitempty"`
	ChatID int64  `json:"chat_id,omitempty"`
}

type ReminderConfig struct {
	Enabled     bool   `json:"enabled"`
	LeadMinutes int    `json:"lead_minutes,omitempty"`
	Timezone    string `json:"timezone,omitempty"` // IANA TZ, e.g. "Asia/Karachi"
}

type ImportConfig struct {
	// DefaultMeridiem resolves bare 12-hour times in tabular imports when a
	// cell carries no AM/PM marker. Empty reads them as 24-hour.
	DefaultMeridiem string `json:"default_meridiem,omitempty"`
}

// TimetableConfig overrides the document-layout heuristics. Empty lists keep
// the built-in defaults.
type TimetableConfig struct {
	RoomMarkers     []string `json:"room_markers,omitempty"`
	TeacherPrefixes []string `json:"teacher_prefixes,omitempty"`
	SectionCodes    []string `json:"section_codes,omitempty"`
	ControlTokens   []string `json:"control_tokens,omitempty"`
}
