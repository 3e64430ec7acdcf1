package workflows

import (
	"errors"
	"fmt"
	"log"

	"github.com/tendant/paged-content-pipeline/internal/derivatives"
	"github.com/tendant/paged-content-pipeline/internal/images"
	"github.com/tendant/paged-content-pipeline/internal/ocr"
	"github.com/tendant/paged-content-pipeline/internal/pdf"
	"github.com/tendant/paged-content-pipeline/internal/repository"
)

// PagePDFWorkflow derives the PDF datastream for one page
type PagePDFWorkflow struct {
	store repository.Store
	pdf   *pdf.Pipeline
}

// NewPagePDFWorkflow creates a page PDF derivation workflow
func NewPagePDFWorkflow(store repository.Store, pdfPipeline *pdf.Pipeline) *PagePDFWorkflow {
	return &PagePDFWorkflow{store: store, pdf: pdfPipeline}
}

// Name returns the workflow name
func (w *PagePDFWorkflow) Name() string {
	return "PagePDFWorkflow"
}

// Execute runs the page PDF derivation workflow
func (w *PagePDFWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	log.Printf("[%s] Starting page PDF workflow for pid=%s", wctx.RunID, wctx.Request.PID)

	obj, err := w.store.GetObject(wctx.Ctx, wctx.Request.PID)
	if err != nil {
		log.Printf("[%s] Failed to fetch object: %v", wctx.RunID, err)
		return &WorkflowResult{Success: false, Error: err}, err
	}

	if err := w.pdf.DerivePagePDF(wctx.Ctx, obj, nil); err != nil {
		if errors.Is(err, derivatives.ErrNotDerivable) {
			// Precondition miss, not a run failure for the batch
			log.Printf("[%s] PDF not derivable for %s - skipping", wctx.RunID, obj.PID)
			return &WorkflowResult{Success: false, Error: err}, nil
		}
		log.Printf("[%s] PDF derivation failed: %v", wctx.RunID, err)
		return &WorkflowResult{Success: false, Error: err}, err
	}

	log.Printf("[%s] Page PDF workflow completed successfully", wctx.RunID)
	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{
			"pid":        wctx.Request.PID,
			"datastream": "PDF",
		},
	}, nil
}

// PageOCRWorkflow derives the OCR and HOCR datastreams for one page
type PageOCRWorkflow struct {
	store repository.Store
	ocr   *ocr.Pipeline
}

// NewPageOCRWorkflow creates a page OCR derivation workflow
func NewPageOCRWorkflow(store repository.Store, ocrPipeline *ocr.Pipeline) *PageOCRWorkflow {
	return &PageOCRWorkflow{store: store, ocr: ocrPipeline}
}

// Name returns the workflow name
func (w *PageOCRWorkflow) Name() string {
	return "PageOCRWorkflow"
}

// Execute runs the page OCR derivation workflow. Request options may carry
// "language" and "preprocess"; when absent, the settings recorded on the
// object are reused.
func (w *PageOCRWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	log.Printf("[%s] Starting page OCR workflow for pid=%s", wctx.RunID, wctx.Request.PID)

	obj, err := w.store.GetObject(wctx.Ctx, wctx.Request.PID)
	if err != nil {
		log.Printf("[%s] Failed to fetch object: %v", wctx.RunID, err)
		return &WorkflowResult{Success: false, Error: err}, err
	}

	var opts *ocr.Options
	if lang, ok := wctx.Request.Options["language"]; ok {
		opts = &ocr.Options{
			Language:   lang,
			Preprocess: wctx.Request.Options["preprocess"] == "true",
		}
	}

	outcome, err := w.ocr.DerivePageOCR(wctx.Ctx, obj, opts)
	if err != nil {
		if errors.Is(err, derivatives.ErrNotDerivable) {
			log.Printf("[%s] OCR not derivable for %s - skipping", wctx.RunID, obj.PID)
			return &WorkflowResult{Success: false, Error: err}, nil
		}
		log.Printf("[%s] OCR derivation failed: %v", wctx.RunID, err)
		return &WorkflowResult{Success: false, Error: err}, err
	}

	result := &WorkflowResult{
		Success: outcome.Success(),
		Outputs: map[string]interface{}{
			"pid":                wctx.Request.PID,
			"ocr_stored":         outcome.OCRStored,
			"hocr_stored":        outcome.HOCRStored,
			"preprocessed":       outcome.Preprocessed,
			"settings_persisted": outcome.SettingsPersisted,
		},
	}
	if !outcome.Success() {
		result.Error = fmt.Errorf("ocr derivation incomplete for %s", obj.PID)
		log.Printf("[%s] OCR workflow incomplete: %+v", wctx.RunID, outcome)
		return result, nil
	}

	log.Printf("[%s] Page OCR workflow completed successfully", wctx.RunID)
	return result, nil
}

// PageImagesWorkflow derives the image datastreams (TN, JPG, JP2) for one page
type PageImagesWorkflow struct {
	store  repository.Store
	images *images.Pipeline
}

// NewPageImagesWorkflow creates a page image derivation workflow
func NewPageImagesWorkflow(store repository.Store, imagesPipeline *images.Pipeline) *PageImagesWorkflow {
	return &PageImagesWorkflow{store: store, images: imagesPipeline}
}

// Name returns the workflow name
func (w *PageImagesWorkflow) Name() string {
	return "PageImagesWorkflow"
}

// Execute runs the page image derivation workflow
func (w *PageImagesWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	log.Printf("[%s] Starting page images workflow for pid=%s", wctx.RunID, wctx.Request.PID)

	obj, err := w.store.GetObject(wctx.Ctx, wctx.Request.PID)
	if err != nil {
		log.Printf("[%s] Failed to fetch object: %v", wctx.RunID, err)
		return &WorkflowResult{Success: false, Error: err}, err
	}

	if err := w.images.DerivePageImages(wctx.Ctx, obj); err != nil {
		log.Printf("[%s] Image derivation failed: %v", wctx.RunID, err)
		return &WorkflowResult{Success: false, Error: err}, err
	}

	log.Printf("[%s] Page images workflow completed successfully", wctx.RunID)
	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{
			"pid": wctx.Request.PID,
		},
	}, nil
}
