// Package http provides http transport for bestseller snapshots
package http

import (
	stdhttp "net/http"
	"time"

	"bestsellers/internal/modkit/httpkit"
	perr "bestsellers/internal/platform/errors"
	"bestsellers/internal/services/snapshots/domain"
	svc "bestsellers/internal/services/snapshots/service"
)

// Register mounts snapshot endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	// current or requested week's snapshot, conditional on If-None-Match
	r.Get("/", httpkit.Handle(h.get))
}

type handlers struct{ svc svc.Service }

// @Summary Serve one week's bestseller snapshot
// @Tags Snapshots
// @Produce json
// @Param week query string false "List week (YYYY-MM-DD), defaults to the most recent list day"
// @Param comparison query string false "Comparison week (YYYY-MM-DD)"
// @Success 200 {object} domain.GetOutput "ok"
// @Success 304 "not modified"
// @Failure 404 "not yet available"
// @Router /snapshots [get]
func (h *handlers) get(r *stdhttp.Request) httpkit.Response {
	in := domain.GetInput{IfNoneMatch: r.Header.Get("If-None-Match")}

	q := r.URL.Query()
	if raw := q.Get("week"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return httpkit.Error(perr.InvalidArgf("week must be YYYY-MM-DD, got %q", raw))
		}
		in.Week = t
	}
	if raw := q.Get("comparison"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return httpkit.Error(perr.InvalidArgf("comparison must be YYYY-MM-DD, got %q", raw))
		}
		in.ComparisonWeek = t
	}

	out, err := h.svc.Get(r.Context(), in)
	if err != nil {
		return httpkit.Error(err)
	}

	hdr := stdhttp.Header{}
	hdr.Set("ETag", out.ETag)
	if out.NotModified {
		resp := httpkit.NotModified()
		resp.Header = hdr
		return resp
	}
	resp := httpkit.OK(out)
	resp.Header = hdr
	return resp
}
