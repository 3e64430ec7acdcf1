// Package images derives image datastreams (thumbnail, screen-size JPEG,
// JP2) from a page's canonical image.
package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"io"
	"log"
	"os"

	"github.com/disintegration/imaging"

	"github.com/tendant/paged-content-pipeline/internal/derivatives"
	"github.com/tendant/paged-content-pipeline/internal/repository"
	"github.com/tendant/paged-content-pipeline/internal/shell"
	"github.com/tendant/paged-content-pipeline/pkg/pipeline"
)

// Derivative dimensions
const (
	thumbnailWidth  = 200
	thumbnailHeight = 200
	jpegWidth       = 600
	jpegHeight      = 800
)

// Pipeline derives TN, JPG, and JP2 datastreams
type Pipeline struct {
	store    repository.Store
	resolver *derivatives.Resolver
	mat      *derivatives.Materializer
	runner   shell.Runner
	cfg      *derivatives.Config
}

// New creates an image derivative pipeline
func New(store repository.Store, resolver *derivatives.Resolver, mat *derivatives.Materializer, runner shell.Runner, cfg *derivatives.Config) *Pipeline {
	return &Pipeline{
		store:    store,
		resolver: resolver,
		mat:      mat,
		runner:   runner,
		cfg:      cfg,
	}
}

// DerivePageImages generates every eligible image derivative for the page.
// Ineligible kinds are skipped; the first generation failure is returned.
func (p *Pipeline) DerivePageImages(ctx context.Context, obj *repository.Object) error {
	if p.resolver.CanDerive(obj, derivatives.KindTN) {
		if err := p.deriveScaled(ctx, obj, pipeline.DSIDThumbnail, "Thumbnail", thumbnailWidth, thumbnailHeight); err != nil {
			return err
		}
	}
	if p.resolver.CanDerive(obj, derivatives.KindJPG) {
		if err := p.deriveScaled(ctx, obj, pipeline.DSIDJPG, "JPEG", jpegWidth, jpegHeight); err != nil {
			return err
		}
	}
	if p.resolver.CanDerive(obj, derivatives.KindJP2) {
		if err := p.deriveJP2(ctx, obj); err != nil {
			return err
		}
	}
	return nil
}

// deriveScaled decodes the canonical image, fits it into the target box
// with Lanczos resampling, and stores it as a JPEG datastream
func (p *Pipeline) deriveScaled(ctx context.Context, obj *repository.Object, dsid, label string, width, height int) error {
	reader, err := p.store.ReadDatastream(ctx, obj.PID, pipeline.DSIDObject)
	if err != nil {
		return fmt.Errorf("failed to read source image for %s: %w", obj.PID, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read source image for %s: %w", obj.PID, err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode source image for %s: %w", obj.PID, err)
	}
	log.Printf("Decoded %s source for %s (format: %s)", pipeline.DSIDObject, obj.PID, format)

	scaled := imaging.Fit(img, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 80}); err != nil {
		return fmt.Errorf("failed to encode %s for %s: %w", dsid, obj.PID, err)
	}

	ds := repository.Datastream{
		ID:           dsid,
		Label:        label,
		MimeType:     "image/jpeg",
		ControlGroup: repository.ControlGroupManaged,
	}
	if err := p.store.WriteDatastream(ctx, obj.PID, ds, &buf); err != nil {
		return fmt.Errorf("failed to store %s for %s: %w", dsid, obj.PID, err)
	}
	return nil
}

// deriveJP2 converts the canonical image to JPEG 2000 via the conversion binary
func (p *Pipeline) deriveJP2(ctx context.Context, obj *repository.Object) error {
	src, err := p.mat.MaterializeSource(ctx, obj, derivatives.KindJP2)
	if err != nil {
		return err
	}
	defer os.Remove(src)

	outJP2 := src + ".jp2"
	defer os.Remove(outJP2)

	result, err := p.runner.Run(ctx, p.cfg.ConvertPath, src, outJP2)
	if err != nil {
		return fmt.Errorf("jp2 conversion for %s: %w", obj.PID, err)
	}
	if !result.Ok() {
		log.Printf("JP2 conversion failed for %s: %s", obj.PID, result)
		return fmt.Errorf("jp2 conversion for %s exited %d", obj.PID, result.ExitCode)
	}

	file, err := os.Open(outJP2)
	if err != nil {
		return fmt.Errorf("jp2 conversion for %s produced no output: %w", obj.PID, err)
	}
	defer file.Close()

	ds := repository.Datastream{
		ID:           pipeline.DSIDJP2,
		Label:        "JP2",
		MimeType:     "image/jp2",
		ControlGroup: repository.ControlGroupManaged,
	}
	if err := p.store.WriteDatastream(ctx, obj.PID, ds, file); err != nil {
		return fmt.Errorf("failed to store JP2 for %s: %w", obj.PID, err)
	}
	return nil
}
