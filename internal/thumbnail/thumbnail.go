// Package thumbnail promotes the first page's thumbnail to the
// paged-content object itself.
package thumbnail

import (
	"context"
	"fmt"
	"os"

	"github.com/tendant/paged-content-pipeline/internal/derivatives"
	"github.com/tendant/paged-content-pipeline/internal/pages"
	"github.com/tendant/paged-content-pipeline/internal/repository"
	"github.com/tendant/paged-content-pipeline/pkg/pipeline"
)

// Updater copies the first page's thumbnail up to the parent object
type Updater struct {
	store repository.Store
	pages *pages.Enumerator
	mat   *derivatives.Materializer
}

// NewUpdater creates a thumbnail updater
func NewUpdater(store repository.Store, enum *pages.Enumerator, mat *derivatives.Materializer) *Updater {
	return &Updater{
		store: store,
		pages: enum,
		mat:   mat,
	}
}

// firstPage returns the lowest-sequence page object, or nil when the object
// has no pages
func (u *Updater) firstPage(ctx context.Context, pid string) (*repository.Object, error) {
	entries, err := u.pages.GetPages(ctx, pid)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return u.store.GetObject(ctx, entries[0].PID)
}

// CanUpdateThumbnail reports whether the object has at least one page and
// that first page carries a thumbnail datastream
func (u *Updater) CanUpdateThumbnail(ctx context.Context, pid string) bool {
	page, err := u.firstPage(ctx, pid)
	if err != nil || page == nil {
		return false
	}
	return page.HasDatastream(pipeline.DSIDThumbnail)
}

// UpdateThumbnail writes the first page's thumbnail bytes as the
// paged-content object's own thumbnail datastream. The staged temp file is
// removed regardless of outcome.
func (u *Updater) UpdateThumbnail(ctx context.Context, pid string) error {
	page, err := u.firstPage(ctx, pid)
	if err != nil {
		return err
	}
	if page == nil {
		return fmt.Errorf("object %s has no pages", pid)
	}

	tn, ok := page.Datastreams[pipeline.DSIDThumbnail]
	if !ok {
		return fmt.Errorf("first page %s has no thumbnail", page.PID)
	}

	path, err := u.mat.MaterializeDatastream(ctx, page, pipeline.DSIDThumbnail)
	if err != nil {
		return fmt.Errorf("failed to stage thumbnail from %s: %w", page.PID, err)
	}
	defer os.Remove(path)

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open staged thumbnail: %w", err)
	}
	defer file.Close()

	ds := repository.Datastream{
		ID:           pipeline.DSIDThumbnail,
		Label:        "Thumbnail",
		MimeType:     tn.MimeType,
		ControlGroup: repository.ControlGroupManaged,
	}
	if err := u.store.WriteDatastream(ctx, pid, ds, file); err != nil {
		return fmt.Errorf("failed to store thumbnail on %s: %w", pid, err)
	}
	return nil
}
