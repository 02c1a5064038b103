// Package api provides the HTTP API for the application
package api

import (
	"bestsellers/internal/platform/config"
	"bestsellers/internal/platform/logger"
	phttp "bestsellers/internal/platform/net/http"
	"bestsellers/internal/platform/store"

	"bestsellers/internal/modkit"
	"bestsellers/internal/modkit/httpkit"
	"bestsellers/internal/modkit/module"
	"bestsellers/internal/modkit/swaggerkit"

	aggmod "bestsellers/internal/services/aggregate/module"
	metamod "bestsellers/internal/services/metadata/module"
	rankmod "bestsellers/internal/services/rankings/module"
	snapmod "bestsellers/internal/services/snapshots/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
	}

	mods := []module.Module{
		snapmod.New(deps),
		metamod.New(deps),
		rankmod.New(deps),
		aggmod.New(deps),
	}

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		// Swagger + profiler
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})
}
