// Package module wires metadata resolution into the API using modkit
package module

import (
	"context"
	"net/http"

	"bestsellers/internal/adapters/metadata/openlibrary"
	modkit "bestsellers/internal/modkit"
	"bestsellers/internal/modkit/httpkit"
	str "bestsellers/internal/platform/strings"
	"bestsellers/internal/services/metadata/domain"
	metahttp "bestsellers/internal/services/metadata/http"
	metarepo "bestsellers/internal/services/metadata/repo"
	metasvc "bestsellers/internal/services/metadata/service"
)

// Module implements the metadata module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc metasvc.Service
}

// New constructs the metadata module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("metadata"), modkit.WithPrefix("/metadata")}, opts...)...)

	lookup := lookupAdapter{c: openlibrary.NewFromConf(deps.Cfg.Prefix("OPENLIBRARY_"))}
	svc := metasvc.New(deps.PG, metarepo.NewPG(), lookup, metasvc.ConfigFromEnv(deps.Cfg))

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = adaptMetadataPort{svc: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		metahttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// lookupAdapter maps the provider client onto the service lookup port
type lookupAdapter struct{ c *openlibrary.Client }

func (a lookupAdapter) Lookup(ctx context.Context, isbn string) (domain.BookMetadata, error) {
	b, err := a.c.Lookup(ctx, isbn)
	if err != nil {
		return domain.BookMetadata{}, err
	}
	return domain.BookMetadata{
		ISBN:      b.ISBN,
		Title:     b.Title,
		Author:    b.Author,
		Category:  b.Category,
		CoverURL:  b.CoverURL,
		Published: b.Published,
	}, nil
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
