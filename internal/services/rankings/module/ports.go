package module

import (
	"context"

	"bestsellers/internal/services/rankings/domain"
	ranksvc "bestsellers/internal/services/rankings/service"
)

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

type adaptRankingsPort struct{ svc ranksvc.Service }

// List returns one year's persisted rankings grouped by category
func (a adaptRankingsPort) List(ctx context.Context, in domain.ListInput) (domain.ListOutput, error) {
	return a.svc.List(ctx, in)
}
