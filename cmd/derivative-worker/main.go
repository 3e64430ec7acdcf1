package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tendant/paged-content-pipeline/internal/dbosruntime"
	"github.com/tendant/paged-content-pipeline/internal/dedupe"
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

// Durable derivation worker: enqueues derivation jobs on a DBOS queue and
// processes them against the repository's REST API.
func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	httpAddr := os.Getenv("WORKER_HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8081"
	}

	repoAPIURL := os.Getenv("REPOSITORY_API_URL")
	if repoAPIURL == "" {
		log.Fatalf("REPOSITORY_API_URL is required")
	}

	// Pipeline configuration from environment
	cfg := &derivatives.Config{
		ConvertPath:         os.Getenv("CONVERT_PATH"),
		PDFMergePath:        os.Getenv("PDF_MERGE_PATH"),
		TesseractPath:       os.Getenv("TESSERACT_PATH"),
		SettingsPersistence: os.Getenv("OCR_SETTINGS_PERSISTENCE"),
		TempDir:             os.Getenv("DERIVATIVE_TEMP_DIR"),
	}
	cfg.WithDefaults()

	store := repository.NewHTTPStore(repoAPIURL)
	log.Printf("Using repository API at: %s", repoAPIURL)

	// DBOS runtime (required)
	dbURL := os.Getenv("DBOS_SYSTEM_DATABASE_URL")
	if dbURL == "" {
		log.Fatalf("DBOS_SYSTEM_DATABASE_URL is required")
	}

	concurrency := 4
	if v := os.Getenv("DBOS_QUEUE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			concurrency = n
		}
	}

	dbosRuntime, err := dbosruntime.NewRuntime(context.Background(), dbosruntime.Config{
		DatabaseURL: dbURL,
		AppName:     "derivative-worker",
		QueueName:   os.Getenv("DBOS_QUEUE_NAME"),
		Concurrency: concurrency,
	})
	if err != nil {
		log.Fatalf("Failed to initialize DBOS: %v", err)
	}

	// Relationships live beside the DBOS state in Postgres unless a
	// dedicated database is configured
	relsDB := dbosRuntime.DB()
	if relsURL := os.Getenv("RELATIONS_DATABASE_URL"); relsURL != "" {
		db, err := sql.Open("postgres", relsURL)
		if err != nil {
			log.Fatalf("Failed to open relations database: %v", err)
		}
		defer db.Close()
		relsDB = db
	}

	triples, err := repository.NewPGTripleStore(relsDB)
	if err != nil {
		log.Fatalf("Failed to initialize triple store: %v", err)
	}

	dedupeTracker, err := dedupe.NewTracker(dbosRuntime.DB())
	if err != nil {
		log.Fatalf("Failed to initialize dedupe tracker: %v", err)
	}

	// Wire the pipelines
	rels := relations.New(triples)
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

	// Register workflows with the runner (and DBOS)
	workflowRunner := workflows.NewWorkflowRunner(dbosRuntime)

	register := func(job string, w workflows.Workflow) {
		workflowRunner.Register(job, w)
		log.Printf("✓ Registered workflow: %s for job: %s", w.Name(), job)
	}
	register(pipeline.JobPagePDF, workflows.NewPagePDFWorkflow(store, pdfPipeline))
	register(pipeline.JobPageOCR, workflows.NewPageOCRWorkflow(store, ocrPipeline))
	register(pipeline.JobPageImages, workflows.NewPageImagesWorkflow(store, imagesPipeline))
	register(pipeline.JobBookPDF, workflows.NewBookPDFWorkflow(store, enumerator, materializer, pdfPipeline, cfg))
	register(pipeline.JobThumbnail, workflows.NewThumbnailWorkflow(updater))

	// Launch DBOS (must be done after workflow registration)
	if err := dbosRuntime.Launch(); err != nil {
		log.Fatalf("Failed to launch DBOS: %v", err)
	}
	defer dbosRuntime.Shutdown(10 * time.Second)

	log.Printf("✓ DBOS runtime initialized")
	log.Printf("  Queue: %s", dbosRuntime.QueueName())
	log.Printf("  Concurrency: %d", dbosRuntime.Concurrency())

	// HTTP server
	mux := http.NewServeMux()

	asyncHandler := handlers.NewAsyncHandler(workflowRunner, dedupeTracker)
	queryHandler := handlers.NewQueryHandler(store, enumerator, extractor)

	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/v1/derive", asyncHandler.HandleDeriveAsync)
	mux.HandleFunc("/v1/runs/", asyncHandler.HandleStatus)
	mux.HandleFunc("/v1/pages", queryHandler.HandlePages)
	mux.HandleFunc("/v1/highlights", queryHandler.HandleHighlights)
	mux.Handle("/metrics", promhttp.Handler())

	log.Printf("✓ Registered endpoints")

	server := &http.Server{
		Addr:    httpAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("Derivative worker listening on %s", httpAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for shutdown signal
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
