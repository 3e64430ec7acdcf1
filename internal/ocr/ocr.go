// Package ocr derives OCR text and HOCR positional markup from a page's
// canonical image, with an optional image-cleanup pass, and records the
// options used as relationships for reuse on later runs.
package ocr

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/paged-content-pipeline/internal/derivatives"
	"github.com/tendant/paged-content-pipeline/internal/relations"
	"github.com/tendant/paged-content-pipeline/internal/repository"
	"github.com/tendant/paged-content-pipeline/internal/shell"
	"github.com/tendant/paged-content-pipeline/pkg/pipeline"
)

// Options are the per-run OCR settings. A nil *Options on DerivePageOCR
// means "reuse what the object has recorded".
type Options struct {
	Language   string
	Preprocess bool
}

// Outcome reports each sub-step of an OCR run. The OCR and HOCR halves are
// independent; overall success requires both halves to generate a file and
// store it.
type Outcome struct {
	Preprocessed      bool
	OCRGenerated      bool
	OCRStored         bool
	HOCRGenerated     bool
	HOCRStored        bool
	SettingsPersisted bool
}

// Success reports whether every required sub-step succeeded
func (o Outcome) Success() bool {
	return o.OCRGenerated && o.OCRStored && o.HOCRGenerated && o.HOCRStored
}

// Pipeline derives OCR and HOCR datastreams
type Pipeline struct {
	store  repository.Store
	rels   *relations.Adapter
	mat    *derivatives.Materializer
	runner shell.Runner
	cfg    *derivatives.Config
}

// New creates an OCR pipeline
func New(store repository.Store, rels *relations.Adapter, mat *derivatives.Materializer, runner shell.Runner, cfg *derivatives.Config) *Pipeline {
	return &Pipeline{
		store:  store,
		rels:   rels,
		mat:    mat,
		runner: runner,
		cfg:    cfg,
	}
}

// DerivePageOCR runs OCR text and HOCR extraction over the page's canonical
// image and writes the results back as OCR/HOCR datastreams. When opts is
// nil, the language and preprocess flag recorded on the object are reused
// (defaults: "eng", no preprocessing). Temporary files are removed on every
// exit path.
func (p *Pipeline) DerivePageOCR(ctx context.Context, obj *repository.Object, opts *Options) (Outcome, error) {
	var outcome Outcome

	if opts == nil {
		settings, err := p.rels.OCRSettings(ctx, obj.PID)
		if err != nil {
			return outcome, err
		}
		opts = &Options{Language: settings.Language, Preprocess: settings.Preprocess}
	}
	if opts.Language == "" {
		opts.Language = "eng"
	}

	src, err := p.mat.MaterializeSource(ctx, obj, derivatives.KindOCR)
	if err != nil {
		return outcome, err
	}

	temps := []string{src}
	defer func() {
		for _, path := range temps {
			os.Remove(path)
		}
	}()

	input := src
	if opts.Preprocess {
		processed := src + ".processed.tif"
		temps = append(temps, processed)
		result, err := p.runner.Run(ctx, p.cfg.ConvertPath, src, "-deskew", "40%", "+repage", processed)
		if err != nil {
			return outcome, fmt.Errorf("preprocess for %s: %w", obj.PID, err)
		}
		if result.Ok() {
			input = processed
			outcome.Preprocessed = true
		} else {
			// Fall back to the raw image rather than failing the run.
			log.Printf("OCR preprocess failed for %s, using raw image: %s", obj.PID, result)
		}
	}

	base := strings.TrimSuffix(src, filepath.Ext(src))
	ocrFile := base + ".txt"
	hocrFile := base + ".hocr"
	temps = append(temps, ocrFile, hocrFile)

	outcome.OCRGenerated = p.extract(ctx, obj.PID, input, base, opts.Language, "txt", ocrFile)
	outcome.HOCRGenerated = p.extract(ctx, obj.PID, input, base, opts.Language, "hocr", hocrFile)

	if outcome.OCRGenerated {
		outcome.OCRStored = p.storeResult(ctx, obj.PID, pipeline.DSIDOCR, "text/plain", ocrFile)
	}
	if outcome.HOCRGenerated {
		outcome.HOCRStored = p.storeResult(ctx, obj.PID, pipeline.DSIDHOCR, "text/html", hocrFile)
	}

	if p.cfg.SettingsPersistence == derivatives.PersistAlways || outcome.Success() {
		err := p.rels.SetOCRSettings(ctx, obj.PID, relations.OCRSettings{
			Language:   opts.Language,
			Preprocess: opts.Preprocess,
		})
		if err != nil {
			log.Printf("Failed to persist OCR settings for %s: %v", obj.PID, err)
		} else {
			outcome.SettingsPersisted = true
		}
	}

	return outcome, nil
}

// extract runs one tesseract invocation producing want, reporting whether
// the file was produced
func (p *Pipeline) extract(ctx context.Context, pid, input, base, language, mode, want string) bool {
	result, err := p.runner.Run(ctx, p.cfg.TesseractPath, input, base, "-l", language, mode)
	if err != nil {
		log.Printf("OCR %s extraction failed to run for %s: %v", mode, pid, err)
		return false
	}
	if !result.Ok() {
		log.Printf("OCR %s extraction failed for %s: %s", mode, pid, result)
		return false
	}
	if _, err := os.Stat(want); err != nil {
		log.Printf("OCR %s extraction for %s produced no output: %v", mode, pid, err)
		return false
	}
	return true
}

func (p *Pipeline) storeResult(ctx context.Context, pid, dsid, mimeType, path string) bool {
	file, err := os.Open(path)
	if err != nil {
		log.Printf("Failed to open %s result for %s: %v", dsid, pid, err)
		return false
	}
	defer file.Close()

	ds := repository.Datastream{
		ID:           dsid,
		Label:        dsid,
		MimeType:     mimeType,
		ControlGroup: repository.ControlGroupManaged,
	}
	if err := p.store.WriteDatastream(ctx, pid, ds, file); err != nil {
		log.Printf("Failed to store %s for %s: %v", dsid, pid, err)
		return false
	}
	return true
}
