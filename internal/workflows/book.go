package workflows

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/paged-content-pipeline/internal/derivatives"
	"github.com/tendant/paged-content-pipeline/internal/pages"
	"github.com/tendant/paged-content-pipeline/internal/pdf"
	"github.com/tendant/paged-content-pipeline/internal/repository"
	"github.com/tendant/paged-content-pipeline/internal/thumbnail"
	"github.com/tendant/paged-content-pipeline/pkg/pipeline"
)

// BookPDFWorkflow assembles a paged-content PDF: each page's PDF is derived
// independently, then the per-page PDFs are combined in page order and
// written back to the parent object.
type BookPDFWorkflow struct {
	store repository.Store
	pages *pages.Enumerator
	mat   *derivatives.Materializer
	pdf   *pdf.Pipeline
	cfg   *derivatives.Config
}

// NewBookPDFWorkflow creates a book PDF assembly workflow
func NewBookPDFWorkflow(store repository.Store, enum *pages.Enumerator, mat *derivatives.Materializer, pdfPipeline *pdf.Pipeline, cfg *derivatives.Config) *BookPDFWorkflow {
	return &BookPDFWorkflow{
		store: store,
		pages: enum,
		mat:   mat,
		pdf:   pdfPipeline,
		cfg:   cfg,
	}
}

// Name returns the workflow name
func (w *BookPDFWorkflow) Name() string {
	return "BookPDFWorkflow"
}

// Execute runs the book PDF assembly workflow. Page-level failures are
// isolated: a page whose PDF cannot be derived or staged is reported and
// skipped, and the remaining pages are still combined in order.
func (w *BookPDFWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	log.Printf("[%s] Starting book PDF workflow for pid=%s", wctx.RunID, wctx.Request.PID)

	entries, err := w.pages.GetPages(wctx.Ctx, wctx.Request.PID)
	if err != nil {
		log.Printf("[%s] Failed to enumerate pages: %v", wctx.RunID, err)
		return &WorkflowResult{Success: false, Error: err}, err
	}
	if len(entries) == 0 {
		err := fmt.Errorf("object %s has no pages", wctx.Request.PID)
		log.Printf("[%s] %v", wctx.RunID, err)
		return &WorkflowResult{Success: false, Error: err}, nil
	}

	var files []string
	var failed []string
	defer func() {
		for _, f := range files {
			os.Remove(f)
		}
	}()

	// Stage each page's PDF in enumerator order, deriving it first if absent
	for _, entry := range entries {
		path, err := w.stagePagePDF(wctx, entry.PID)
		if err != nil {
			log.Printf("[%s] Skipping page %s: %v", wctx.RunID, entry.PID, err)
			failed = append(failed, entry.PID)
			continue
		}
		files = append(files, path)
	}

	if len(files) == 0 {
		err := fmt.Errorf("no page PDFs available for %s", wctx.Request.PID)
		log.Printf("[%s] %v", wctx.RunID, err)
		return &WorkflowResult{Success: false, Error: err}, nil
	}

	out := filepath.Join(w.cfg.TempDir, strings.NewReplacer(":", "_", "/", "_").Replace(wctx.Request.PID)+"_PDF.pdf")
	defer os.Remove(out)

	if err := w.pdf.CombinePDFs(wctx.Ctx, files, out); err != nil {
		log.Printf("[%s] Combine failed: %v", wctx.RunID, err)
		return &WorkflowResult{Success: false, Error: err}, err
	}

	file, err := os.Open(out)
	if err != nil {
		return &WorkflowResult{Success: false, Error: err}, err
	}
	defer file.Close()

	ds := repository.Datastream{
		ID:           pipeline.DSIDPDF,
		Label:        "PDF",
		MimeType:     "application/pdf",
		ControlGroup: repository.ControlGroupManaged,
	}
	if err := w.store.WriteDatastream(wctx.Ctx, wctx.Request.PID, ds, file); err != nil {
		log.Printf("[%s] Failed to store book PDF: %v", wctx.RunID, err)
		return &WorkflowResult{Success: false, Error: err}, err
	}

	log.Printf("[%s] Book PDF workflow completed: %d pages combined, %d skipped", wctx.RunID, len(files), len(failed))
	return &WorkflowResult{
		Success: len(failed) == 0,
		Outputs: map[string]interface{}{
			"pid":            wctx.Request.PID,
			"pages_combined": len(files),
			"pages_skipped":  failed,
		},
	}, nil
}

// stagePagePDF ensures the page has a PDF datastream and copies it to a
// local file for combining
func (w *BookPDFWorkflow) stagePagePDF(wctx *WorkflowContext, pid string) (string, error) {
	obj, err := w.store.GetObject(wctx.Ctx, pid)
	if err != nil {
		return "", err
	}

	if !obj.HasDatastream(pipeline.DSIDPDF) {
		if err := w.pdf.DerivePagePDF(wctx.Ctx, obj, nil); err != nil {
			return "", err
		}
		// Re-fetch so the staged copy sees the new datastream
		obj, err = w.store.GetObject(wctx.Ctx, pid)
		if err != nil {
			return "", err
		}
	}

	return w.mat.MaterializeDatastream(wctx.Ctx, obj, pipeline.DSIDPDF)
}

// ThumbnailWorkflow copies the first page's thumbnail to the paged-content object
type ThumbnailWorkflow struct {
	updater *thumbnail.Updater
}

// NewThumbnailWorkflow creates a thumbnail update workflow
func NewThumbnailWorkflow(updater *thumbnail.Updater) *ThumbnailWorkflow {
	return &ThumbnailWorkflow{updater: updater}
}

// Name returns the workflow name
func (w *ThumbnailWorkflow) Name() string {
	return "ThumbnailWorkflow"
}

// Execute runs the thumbnail update workflow
func (w *ThumbnailWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	log.Printf("[%s] Starting thumbnail workflow for pid=%s", wctx.RunID, wctx.Request.PID)

	if !w.updater.CanUpdateThumbnail(wctx.Ctx, wctx.Request.PID) {
		log.Printf("[%s] No first-page thumbnail available for %s - skipping", wctx.RunID, wctx.Request.PID)
		return &WorkflowResult{Success: false, Error: ErrNotEligible}, nil
	}

	if err := w.updater.UpdateThumbnail(wctx.Ctx, wctx.Request.PID); err != nil {
		log.Printf("[%s] Thumbnail update failed: %v", wctx.RunID, err)
		return &WorkflowResult{Success: false, Error: err}, err
	}

	log.Printf("[%s] Thumbnail workflow completed successfully", wctx.RunID)
	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{
			"pid":        wctx.Request.PID,
			"datastream": pipeline.DSIDThumbnail,
		},
	}, nil
}
