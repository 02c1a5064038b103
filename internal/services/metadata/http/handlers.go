// Package http provides http transport for metadata resolution
package http

import (
	stdhttp "net/http"

	"bestsellers/internal/modkit/httpkit"
	"bestsellers/internal/services/metadata/domain"
	svc "bestsellers/internal/services/metadata/service"
)

// Register mounts metadata endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	// batch metadata resolution through the tiered cache
	httpkit.PostJSON[domain.ResolveInput](r, "/resolve", h.resolve)

	// evict expired entries from both cache tiers
	httpkit.Post(r, "/sweep", h.sweep)
}

type handlers struct{ svc svc.Service }

// @Summary Resolve book metadata for a batch of ISBNs
// @Tags Metadata
// @Accept json
// @Produce json
// @Param payload body domain.ResolveInput true "ISBN batch"
// @Success 200 {object} domain.ResolveOutput "ok"
// @Router /metadata/resolve [post]
func (h *handlers) resolve(r *stdhttp.Request, in domain.ResolveInput) (any, error) {
	return h.svc.Resolve(r.Context(), in)
}

// @Summary Evict expired cache entries
// @Tags Metadata
// @Produce json
// @Success 200 {object} domain.SweepOutput "ok"
// @Router /metadata/sweep [post]
func (h *handlers) sweep(r *stdhttp.Request) (any, error) {
	return h.svc.Sweep(r.Context())
}
