// Package module wires ingestion as a worker module without HTTP routes
package module

import (
	modkit "bestsellers/internal/modkit"
	"bestsellers/internal/modkit/httpkit"
	"bestsellers/internal/services/ingest/domain"
	ingsvc "bestsellers/internal/services/ingest/service"
)

// Ports exposes the consumable ingestion surfaces
type Ports struct {
	Ingestor domain.IngestorPort
}

// Module implements the ingest module
type Module struct {
	deps  modkit.Deps
	ports Ports
	svc   ingsvc.Service
}

// New constructs the ingest module
func New(deps modkit.Deps) *Module {
	svc := ingsvc.New(deps.PG, deps.CH)
	return &Module{
		deps:  deps,
		svc:   svc,
		ports: Ports{Ingestor: svc},
	}
}

// Name returns the module name
func (m *Module) Name() string { return "ingest" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes returns no HTTP routes for ingest (it's a CLI job)
func (m *Module) MountRoutes(_ httpkit.Router) {}
