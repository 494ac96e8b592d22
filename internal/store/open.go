package store

import (
	"errors"
	"strings"

	"sortir/pkg/logx"
)

// Open initializes the configured store.
//
// notify may be nil when nobody needs change events (tests, tools). The
// default driver is "memory" so a bare config still boots.
func Open(cfg Config, log logx.Logger, notify NotifyFunc) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if notify == nil {
		notify = func(ChangeEvent) {}
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "memory":
		return newMemory(notify), nil
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log, notify)
	default:
		return nil, errors.New("unknown store driver: " + driver)
	}
}
