package module

import (
	"context"

	"bestsellers/internal/services/snapshots/domain"
	snapsvc "bestsellers/internal/services/snapshots/service"
)

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

type adaptSnapshotsPort struct{ svc snapsvc.Service }

// Get serves one week's snapshot with its freshness posture
func (a adaptSnapshotsPort) Get(ctx context.Context, in domain.GetInput) (domain.GetOutput, error) {
	return a.svc.Get(ctx, in)
}
