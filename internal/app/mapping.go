package app

import (
	"sortir/internal/config"
	"sortir/internal/push"
	"sortir/internal/reminder"
	"sortir/internal/store"
	"sortir/pkg/logx"
)

// Mapping keeps the file-facing config types decoupled from each
// component's own Config struct.

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStoreConfig(cfg *config.Config) (store.Config, error) {
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return store.Config{}, err
	}
	return store.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, nil
}

func mapPushConfig(cfg *config.Config) (push.Config, error) {
	timeout, err := config.ParseDurationField("push.timeout", cfg.Push.Timeout)
	if err != nil {
		return push.Config{}, err
	}
	return push.Config{
		Endpoint: cfg.Push.Endpoint,
		APIKey:   cfg.Push.APIKey,
		Timeout:  timeout,
	}, nil
}

func mapReminderConfig(cfg *config.Config) reminder.Config {
	rc := reminder.Config{Enabled: cfg.ReminderEnabled()}
	if cfg.Reminder != nil {
		rc.Schedule = cfg.Reminder.Schedule
		rc.Timezone = cfg.Reminder.Timezone
	}
	return rc
}
