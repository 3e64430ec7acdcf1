package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tendant/paged-content-pipeline/internal/derivatives"
	"github.com/tendant/paged-content-pipeline/internal/handlers"
	"github.com/tendant/paged-content-pipeline/internal/hocr"
	"github.com/tendant/paged-content-pipeline/internal/images"
	"github.com/tendant/paged-content-pipeline/internal/ocr"
	"github.com/tendant/paged-content-pipeline/internal/pages"
	"github.com/tendant/paged-content-pipeline/internal/pdf"
	"github.com/tendant/paged-content-pipeline/internal/relations"
	"github.com/tendant/paged-content-pipeline/internal/repository"
	"github.com/tendant/paged-content-pipeline/internal/shell"
	"github.com/tendant/paged-content-pipeline/internal/thumbnail"
	"github.com/tendant/paged-content-pipeline/internal/workflows"
	"github.com/tendant/paged-content-pipeline/pkg/pipeline"
)

// Standalone derivation worker for quick testing.
// In-memory repository and triple store, synchronous execution.
// No Postgres or DBOS needed.
func main() {
	httpAddr := os.Getenv("PIPELINE_HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	cfg := &derivatives.Config{
		ConvertPath:   os.Getenv("CONVERT_PATH"),
		PDFMergePath:  os.Getenv("PDF_MERGE_PATH"),
		TesseractPath: os.Getenv("TESSERACT_PATH"),
		TempDir:       os.Getenv("DERIVATIVE_TEMP_DIR"),
	}
	cfg.WithDefaults()

	log.Printf("Derivative Standalone Worker")
	log.Printf("  Mode: Embedded (in-memory repository, synchronous runs)")
	log.Printf("  HTTP address: %s", httpAddr)

	store := repository.NewMemoryStore()
	log.Printf("✓ in-memory repository initialized")

	rels := relations.New(store)
	enumerator := pages.NewEnumerator(rels)
	caps := shell.NewCapabilities(cfg)
	resolver := derivatives.NewResolver(caps, cfg)
	materializer := derivatives.NewMaterializer(store, resolver, cfg)
	runner := shell.ExecRunner{}

	pdfPipeline := pdf.New(store, materializer, runner, cfg)
	ocrPipeline := ocr.New(store, rels, materializer, runner, cfg)
	imagesPipeline := images.New(store, resolver, materializer, runner, cfg)
	updater := thumbnail.NewUpdater(store, enumerator, materializer)
	extractor := hocr.NewExtractor(store)

	// Synchronous runner, no DBOS
	workflowRunner := workflows.NewWorkflowRunner(nil)
	workflowRunner.Register(pipeline.JobPagePDF, workflows.NewPagePDFWorkflow(store, pdfPipeline))
	workflowRunner.Register(pipeline.JobPageOCR, workflows.NewPageOCRWorkflow(store, ocrPipeline))
	workflowRunner.Register(pipeline.JobPageImages, workflows.NewPageImagesWorkflow(store, imagesPipeline))
	workflowRunner.Register(pipeline.JobBookPDF, workflows.NewBookPDFWorkflow(store, enumerator, materializer, pdfPipeline, cfg))
	workflowRunner.Register(pipeline.JobThumbnail, workflows.NewThumbnailWorkflow(updater))
	log.Printf("✓ Registered workflows")

	mux := http.NewServeMux()

	syncHandler := handlers.NewSyncHandler(workflowRunner)
	queryHandler := handlers.NewQueryHandler(store, enumerator, extractor)

	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/v1/derive", syncHandler.HandleDerive)
	mux.HandleFunc("/v1/pages", queryHandler.HandlePages)
	mux.HandleFunc("/v1/highlights", queryHandler.HandleHighlights)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    httpAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("Standalone worker listening on %s", httpAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Printf("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
