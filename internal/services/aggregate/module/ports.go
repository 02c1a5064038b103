package module

import (
	"context"

	"bestsellers/internal/services/aggregate/domain"
	aggsvc "bestsellers/internal/services/aggregate/service"
)

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

type adaptAggregatePort struct{ svc aggsvc.Service }

// Aggregate recomputes all aggregates and rankings for one year
func (a adaptAggregatePort) Aggregate(ctx context.Context, in domain.RunInput) (domain.RunOutput, error) {
	return a.svc.Aggregate(ctx, in)
}
