// Package http provides http transport for aggregation runs
package http

import (
	stdhttp "net/http"

	"bestsellers/internal/modkit/httpkit"
	"bestsellers/internal/services/aggregate/domain"
	svc "bestsellers/internal/services/aggregate/service"
)

// Register mounts aggregation endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	// trigger one aggregation run, year defaults to the current one
	httpkit.PostJSON[domain.RunInput](r, "/run", h.run)
}

type handlers struct{ svc svc.Service }

// @Summary Run yearly aggregation and ranking
// @Tags Aggregate
// @Accept json
// @Produce json
// @Param payload body domain.RunInput true "Run request"
// @Success 202 {object} domain.RunOutput "accepted"
// @Router /aggregate/run [post]
func (h *handlers) run(r *stdhttp.Request, in domain.RunInput) (any, error) {
	out, err := h.svc.Aggregate(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Accepted(out), nil
}
