// Package module defines the minimal contract for a modkit module
package module

import (
	phttp "bestsellers/internal/platform/net/http"
)

// Module mirrors the modkit contract from a leaf package
// lives here so a vertical exporting its own Ports type avoids import cycles
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}
