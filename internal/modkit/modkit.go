package modkit

import (
	phttp "bestsellers/internal/platform/net/http"
)

// Module is what every vertical exposes to the API assembly
// kept to three methods so verticals stay decoupled from each other
type Module interface {
	// MountRoutes attaches the module's HTTP routes to the router seam
	MountRoutes(r phttp.Router)
	// Ports exposes the module's port bundle for cross wiring
	Ports() any
	// Name identifies the module in logs and the registry
	Name() string
}

// Builder is the conventional shape of a module constructor
// verticals expose New(deps Deps, opts ...Option) Module matching it
type Builder func(Deps, ...Option) Module
