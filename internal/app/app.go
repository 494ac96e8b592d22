// Package app wires the configured components into one runnable service.
package app

import (
	"context"
	"fmt"

	"sortir/internal/config"
	"sortir/internal/eventbus"
	"sortir/internal/handlers"
	"sortir/internal/push"
	"sortir/internal/reminder"
	"sortir/internal/store"
	"sortir/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	logs *logx.Service
	log  logx.Logger

	bus    eventbus.Bus[store.ChangeEvent]
	st     store.Store
	router *handlers.Router
	rem    *reminder.Service

	cfgCh       chan *config.Config
	watchCancel context.CancelFunc
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(logSvc.Logger().With(logx.String("comp", "config")))
	cfgm.SetValidator(func(ctx context.Context, c *config.Config) error {
		return validate(c)
	})

	bus := eventbus.New[store.ChangeEvent]()

	storeCfg, err := mapStoreConfig(cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(storeCfg, logSvc.Logger().With(logx.String("comp", "store")), bus.Publish)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Info("store opened", logx.String("driver", storeCfg.Driver))

	pushCfg, err := mapPushConfig(cfg)
	if err != nil {
		return nil, err
	}
	client, err := push.NewClient(pushCfg, logSvc.Logger().With(logx.String("comp", "push")))
	if err != nil {
		return nil, err
	}

	router := handlers.NewRouter(bus, logSvc.Logger().With(logx.String("comp", "router")))
	handlers.Register(router, st, client, logSvc.Logger())

	rem, err := reminder.New(
		mapReminderConfig(cfg),
		st,
		logSvc.Logger().With(logx.String("comp", "reminder")),
	)
	if err != nil {
		return nil, err
	}

	return &App{
		cfgm:   cfgm,
		logs:   logSvc,
		log:    log,
		bus:    bus,
		st:     st,
		router: router,
		rem:    rem,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.router.Start(ctx)
	if err := a.rem.Start(ctx); err != nil {
		return err
	}

	// Config hot-reload only retargets logging; everything else requires a
	// restart.
	watchCtx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	a.cfgCh = a.cfgm.Subscribe(1)
	go func() {
		if err := a.cfgm.Watch(watchCtx); err != nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()
	go func() {
		for cfg := range a.cfgCh {
			a.logs.Apply(mapLoggingConfig(cfg))
			a.log.Info("logging config applied", logx.String("level", cfg.Logging.Level))
		}
	}()

	a.log.Info("service started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.watchCancel != nil {
		a.watchCancel()
	}
	if a.cfgCh != nil {
		a.cfgm.Unsubscribe(a.cfgCh)
	}

	a.rem.Stop(ctx)
	a.router.Stop(ctx)

	if err := a.st.Close(); err != nil {
		a.log.Warn("store close failed", logx.Err(err))
	}
	a.log.Info("service stopped")
	_ = a.logs.Close()
	return nil
}

// validate is the reload gate: a config must map cleanly onto every
// component before it is committed.
func validate(cfg *config.Config) error {
	if _, err := mapStoreConfig(cfg); err != nil {
		return err
	}
	if _, err := mapPushConfig(cfg); err != nil {
		return err
	}
	return nil
}
