package config

// Config is the full service configuration.
//
// The file may be JSON or YAML (decided by extension); YAML is coerced to
// JSON so both formats share one strict decoder.
type Config struct {
	Logging  LoggingConfig   `json:"logging"`
	Storage  StorageConfig   `json:"storage"`
	Push     PushConfig      `json:"push"`
	Reminder *ReminderConfig `json:"reminder,omitempty"`
}

type LoggingConfig struct {
	Level   string     `json:"level,omitempty"`
	Console bool       `json:"console"`
	File    FileConfig `json:"file,omitempty"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig selects the document store backend.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/sortir.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// PushConfig points at the push-delivery service.
type PushConfig struct {
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"api_key,omitempty"` // do not log
	Timeout  string `json:"timeout,omitempty"` // Go duration string
}

// ReminderConfig controls the activity reminder scan.
//
// Enabled is a pointer so an omitted section (or field) defaults to
// enabled; only an explicit false turns the scan off.
type ReminderConfig struct {
	Enabled  *bool  `json:"enabled,omitempty"`
	Schedule string `json:"schedule,omitempty"` // cron spec, default "@every 10m"
	Timezone string `json:"timezone,omitempty"` // default "Europe/Paris"
}

// ReminderEnabled resolves the tri-state enabled flag.
func (c *Config) ReminderEnabled() bool {
	if c.Reminder == nil || c.Reminder.Enabled == nil {
		return true
	}
	return *c.Reminder.Enabled
}
