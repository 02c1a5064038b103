package domain

import "context"

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	Resolve(ctx context.Context, in ResolveInput) (ResolveOutput, error)
	Sweep(ctx context.Context) (SweepOutput, error)
}

// LookupPort is the outbound seam for the external provider
// implementations classify failures as transient or permanent via the
// platform error taxonomy
type LookupPort interface {
	Lookup(ctx context.Context, isbn string) (BookMetadata, error)
}
