package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/tendant/paged-content-pipeline/internal/dedupe"
	"github.com/tendant/paged-content-pipeline/internal/workflows"
	"github.com/tendant/paged-content-pipeline/pkg/pipeline"
)

// AsyncHandler handles asynchronous derivation requests
type AsyncHandler struct {
	workflowRunner *workflows.WorkflowRunner
	dedupeTracker  *dedupe.Tracker
}

// NewAsyncHandler creates a new async handler. dedupeTracker may be nil.
func NewAsyncHandler(runner *workflows.WorkflowRunner, dedupeTracker *dedupe.Tracker) *AsyncHandler {
	return &AsyncHandler{
		workflowRunner: runner,
		dedupeTracker:  dedupeTracker,
	}
}

// HandleDeriveAsync handles POST /v1/derive - enqueues a derivation workflow
// and returns immediately
func (h *AsyncHandler) HandleDeriveAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req pipeline.DeriveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	if req.PID == "" {
		http.Error(w, "pid is required", http.StatusBadRequest)
		return
	}
	if req.Job == "" {
		http.Error(w, "job is required", http.StatusBadRequest)
		return
	}

	log.Printf("Enqueueing derivation: pid=%s, job=%s", req.PID, req.Job)

	seenCount := 0
	if h.dedupeTracker != nil {
		count, err := h.dedupeTracker.Record(r.Context(), req.PID, req.Job)
		if err != nil {
			log.Printf("Failed to record dedupe for %s/%s: %v", req.PID, req.Job, err)
		} else {
			seenCount = count
		}
	}

	runID, err := h.workflowRunner.RunAsync(r.Context(), req)
	if err != nil {
		log.Printf("Failed to enqueue derivation: %v", err)
		http.Error(w, fmt.Sprintf("Failed to enqueue derivation: %v", err), http.StatusInternalServerError)
		return
	}

	log.Printf("Derivation enqueued successfully: run_id=%s", runID)

	resp := pipeline.DeriveResponse{
		RunID:           runID,
		DedupeSeenCount: seenCount,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(resp)
}

// HandleStatus handles GET /v1/runs/{runID} - returns workflow status
func (h *AsyncHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	runID := r.URL.Path[len("/v1/runs/"):]
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return
	}

	log.Printf("Checking derivation status: run_id=%s", runID)

	status, err := h.workflowRunner.GetStatus(r.Context(), runID)
	if err != nil {
		log.Printf("Failed to get derivation status: %v", err)
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}
