// Package module wires snapshots into the API using modkit
package module

import (
	"net/http"

	modkit "bestsellers/internal/modkit"
	"bestsellers/internal/modkit/httpkit"
	str "bestsellers/internal/platform/strings"
	snaphttp "bestsellers/internal/services/snapshots/http"
	snaprepo "bestsellers/internal/services/snapshots/repo"
	snapsvc "bestsellers/internal/services/snapshots/service"
)

// Module implements the snapshots module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc snapsvc.Service
}

// New constructs the snapshots module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("snapshots"), modkit.WithPrefix("/snapshots")}, opts...)...)

	svc := snapsvc.New(deps.PG, snaprepo.NewPG(), snapsvc.ConfigFromEnv(deps.Cfg))

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = adaptSnapshotsPort{svc: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		snaphttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }
