package module

import (
	"context"

	"bestsellers/internal/services/metadata/domain"
	metasvc "bestsellers/internal/services/metadata/service"
)

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

type adaptMetadataPort struct{ svc metasvc.Service }

// Resolve returns metadata for every requested ISBN
func (a adaptMetadataPort) Resolve(ctx context.Context, in domain.ResolveInput) (domain.ResolveOutput, error) {
	return a.svc.Resolve(ctx, in)
}

// Sweep evicts expired entries from both cache tiers
func (a adaptMetadataPort) Sweep(ctx context.Context) (domain.SweepOutput, error) {
	return a.svc.Sweep(ctx)
}
