package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/tendant/paged-content-pipeline/internal/workflows"
	"github.com/tendant/paged-content-pipeline/pkg/pipeline"
)

// SyncHandler runs derivation workflows inline and returns the result.
// Used by the standalone worker, which has no durable queue.
type SyncHandler struct {
	workflowRunner *workflows.WorkflowRunner
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(runner *workflows.WorkflowRunner) *SyncHandler {
	return &SyncHandler{workflowRunner: runner}
}

// HandleDerive handles POST /v1/derive - runs the workflow synchronously
func (h *SyncHandler) HandleDerive(w http.ResponseWriter, r *http.Request) {
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

	runID := uuid.New().String()
	log.Printf("[%s] Running derivation synchronously: pid=%s, job=%s", runID, req.PID, req.Job)

	wctx := &workflows.WorkflowContext{
		Ctx:     r.Context(),
		Request: req,
		RunID:   runID,
	}

	result, err := h.workflowRunner.Run(wctx)
	if err != nil {
		log.Printf("[%s] Derivation failed: %v", runID, err)
		http.Error(w, fmt.Sprintf("Derivation failed: %v", err), http.StatusInternalServerError)
		return
	}

	resp := map[string]interface{}{
		"run_id":  runID,
		"success": result.Success,
		"outputs": result.Outputs,
	}
	if result.Error != nil {
		resp["error"] = result.Error.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
