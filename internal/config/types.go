package config

// Config is the root config for habitbot.
//
// Files may be JSON or YAML; YAML is coerced to JSON and decoded with
// DisallowUnknownFields so typos fail loudly in both formats.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Scheduler SchedulerConfig `json:"scheduler"`
}

type TelegramConfig struct {
	Token string `json:"token"`

	// RatePerSec caps outgoing sendMessage calls. Zero means 1.
	RatePerSec int `json:"rate_per_sec,omitempty"`

	// PollTimeout is a Go duration string (long-poll timeout). The reminder
	// daemon only sends, but the adapter still needs a poller configured.
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string            `json:"level"`
	Console bool              `json:"console"`
	File    LoggingFileConfig `json:"file"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type StorageConfig struct {
	// Path to the SQLite database file.
	Path string `json:"path"`

	// BusyTimeout is a Go duration string (e.g. "5s"). Zero means driver default.
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// SchedulerConfig controls the reminder job runner.
//
// Durations are Go duration strings (e.g. "500ms", "10s", "1m").
type SchedulerConfig struct {
	Enabled bool `json:"enabled"`
	Workers int  `json:"workers,omitempty"`

	// DefaultTimeout bounds a single reminder dispatch. "0s" disables it.
	DefaultTimeout string `json:"default_timeout,omitempty"`

	// Timezone is an IANA TZ name, e.g. "Europe/Moscow". Empty means Local.
	Timezone string `json:"timezone,omitempty"`
}
