package handlers

import (
	"context"
	"runtime/debug"
	"time"

	"sortir/internal/eventbus"
	"sortir/internal/store"
	"sortir/pkg/logx"
)

// HandlerFunc reacts to one document change. params holds the values
// extracted from the route's path template.
type HandlerFunc func(ctx context.Context, ev store.ChangeEvent, params map[string]string) error

type route struct {
	name    string
	kind    store.ChangeKind
	pattern string
	fn      HandlerFunc
}

// Router subscribes to the change-event bus and dispatches events to the
// registered handlers. Handlers for one event run sequentially; a handler
// error is logged and never stops the router or other handlers.
type Router struct {
	bus    eventbus.Bus[store.ChangeEvent]
	log    logx.Logger
	routes []route

	unsub func()
	done  chan struct{}
}

func NewRouter(bus eventbus.Bus[store.ChangeEvent], log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{bus: bus, log: log}
}

func (r *Router) OnCreated(name, pattern string, fn HandlerFunc) {
	r.routes = append(r.routes, route{name: name, kind: store.DocCreated, pattern: pattern, fn: fn})
}

func (r *Router) OnUpdated(name, pattern string, fn HandlerFunc) {
	r.routes = append(r.routes, route{name: name, kind: store.DocUpdated, pattern: pattern, fn: fn})
}

// Start begins consuming events. Registration must be complete before
// Start is called.
func (r *Router) Start(ctx context.Context) {
	ch, unsub := r.bus.Subscribe(256)
	r.unsub = unsub
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				r.dispatch(ctx, ev)
			}
		}
	}()
	r.log.Info("router started", logx.Int("routes", len(r.routes)))
}

func (r *Router) Stop(ctx context.Context) {
	if r.unsub != nil {
		r.unsub()
	}
	if r.done == nil {
		return
	}
	select {
	case <-r.done:
	case <-ctx.Done():
	}
}

// Dispatch runs every matching handler for one event. Exported so tests
// (and synchronous callers) can push events through without the bus.
func (r *Router) Dispatch(ctx context.Context, ev store.ChangeEvent) {
	r.dispatch(ctx, ev)
}

func (r *Router) dispatch(ctx context.Context, ev store.ChangeEvent) {
	for _, rt := range r.routes {
		if rt.kind != ev.Kind {
			continue
		}
		params, ok := matchPath(rt.pattern, ev.Path)
		if !ok {
			continue
		}
		start := time.Now()
		if err := r.invoke(ctx, rt, ev, params); err != nil {
			r.log.Error("handler failed",
				logx.String("handler", rt.name),
				logx.String("path", ev.Path),
				logx.Err(err),
			)
			continue
		}
		r.log.Debug("handler done",
			logx.String("handler", rt.name),
			logx.String("path", ev.Path),
			logx.Duration("took", time.Since(start)),
		)
	}
}

func (r *Router) invoke(ctx context.Context, rt route, ev store.ChangeEvent, params map[string]string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("panic in handler",
				logx.String("handler", rt.name),
				logx.Any("panic", rec),
				logx.String("stack", string(debug.Stack())),
			)
		}
	}()
	return rt.fn(ctx, ev, params)
}
