// Package http provides http transport for year-end rankings
package http

import (
	stdhttp "net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bestsellers/internal/modkit/httpkit"
	perr "bestsellers/internal/platform/errors"
	"bestsellers/internal/services/rankings/domain"
	svc "bestsellers/internal/services/rankings/service"
)

// Register mounts rankings endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/{year}", h.list)
	httpkit.Get(r, "/{year}/{category}", h.list)
}

type handlers struct{ svc svc.Service }

// @Summary Serve a year's persisted rankings
// @Tags Rankings
// @Produce json
// @Param year path int true "Year"
// @Param category path string false "Category, e.g. most_national or regional"
// @Success 200 {object} domain.ListOutput "ok"
// @Failure 404 "no rankings for year"
// @Router /rankings/{year} [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	rawYear := chi.URLParam(r, "year")
	year, err := strconv.Atoi(rawYear)
	if err != nil {
		return nil, perr.InvalidArgf("year must be numeric, got %q", rawYear)
	}
	return h.svc.List(r.Context(), domain.ListInput{
		Year:     year,
		Category: chi.URLParam(r, "category"),
	})
}
