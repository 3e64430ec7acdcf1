package derivatives

import (
	"github.com/tendant/paged-content-pipeline/internal/repository"
)

var pagedContentModels = []string{
	repository.ModelBook,
	repository.ModelNewspaper,
	repository.ModelPage,
	repository.ModelBookPage,
	repository.ModelNewspaperPage,
}

// IsPagedContent reports whether the object carries one of the recognized
// page or paged-content model tags
func IsPagedContent(obj *repository.Object) bool {
	for _, model := range pagedContentModels {
		if obj.HasModel(model) {
			return true
		}
	}
	return false
}

// Resolver decides whether a derivative kind can be generated for an object
type Resolver struct {
	caps Capabilities
	cfg  *Config
}

// NewResolver creates an eligibility resolver
func NewResolver(caps Capabilities, cfg *Config) *Resolver {
	return &Resolver{caps: caps, cfg: cfg}
}

// CanDerive reports whether the derivative kind can be generated for the
// object: recognized model tag, kind enabled, backend installed, and source
// datastream present. Misses yield false, never an error, so batch callers
// can skip per page without aborting a run.
func (r *Resolver) CanDerive(obj *repository.Object, kind Kind) bool {
	if obj == nil || !kind.Valid() {
		return false
	}
	if !IsPagedContent(obj) {
		return false
	}
	if !r.cfg.Enabled(kind) {
		return false
	}
	if !r.caps.Available(kind.Capability()) {
		return false
	}
	return obj.HasDatastream(kind.Source())
}
