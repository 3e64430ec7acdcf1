package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tendant/paged-content-pipeline/internal/hocr"
	"github.com/tendant/paged-content-pipeline/internal/pages"
	"github.com/tendant/paged-content-pipeline/internal/relations"
	"github.com/tendant/paged-content-pipeline/internal/repository"
	"github.com/tendant/paged-content-pipeline/internal/workflows"
	"github.com/tendant/paged-content-pipeline/pkg/pipeline"
)

// okWorkflow reports success for any request
type okWorkflow struct{}

func (okWorkflow) Name() string { return "okWorkflow" }

func (okWorkflow) Execute(wctx *workflows.WorkflowContext) (*workflows.WorkflowResult, error) {
	return &workflows.WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{"pid": wctx.Request.PID},
	}, nil
}

func newQueryHandler(t *testing.T) (*QueryHandler, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	rels := relations.New(store)
	return NewQueryHandler(store, pages.NewEnumerator(rels), hocr.NewExtractor(store)), store
}

func TestHandleDeriveSync(t *testing.T) {
	runner := workflows.NewWorkflowRunner(nil)
	runner.Register(pipeline.JobPagePDF, okWorkflow{})
	h := NewSyncHandler(runner)

	body := `{"pid": "test:page-1", "job": "page_pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/derive", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.HandleDerive(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, true, resp["success"])
	require.NotEmpty(t, resp["run_id"])
}

func TestHandleDeriveSyncValidation(t *testing.T) {
	h := NewSyncHandler(workflows.NewWorkflowRunner(nil))

	tests := []struct {
		name   string
		method string
		body   string
		code   int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"invalid json", http.MethodPost, "{not json", http.StatusBadRequest},
		{"missing pid", http.MethodPost, `{"job": "page_pdf"}`, http.StatusBadRequest},
		{"missing job", http.MethodPost, `{"pid": "test:page-1"}`, http.StatusBadRequest},
		{"unknown job", http.MethodPost, `{"pid": "test:page-1", "job": "bogus"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/v1/derive", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.HandleDerive(rec, req)
			require.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestHandleDeriveAsyncWithoutRuntime(t *testing.T) {
	h := NewAsyncHandler(workflows.NewWorkflowRunner(nil), nil)

	body := `{"pid": "test:page-1", "job": "page_pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/derive", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.HandleDeriveAsync(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandlePages(t *testing.T) {
	h, store := newQueryHandler(t)
	ctx := context.Background()

	for i, pid := range []string{"test:p2", "test:p1"} {
		require.NoError(t, store.Add(ctx, repository.Triple{Subject: pid, Predicate: relations.PredicateMemberOf, Object: "test:book"}))
		require.NoError(t, store.Add(ctx, repository.Triple{Subject: pid, Predicate: relations.PredicateSequenceNumber, Object: []string{"2", "1"}[i], IsLiteral: true}))
	}
	require.NoError(t, relations.New(store).SetPageProgression(ctx, "test:book", relations.ProgressionRightToLeft))

	req := httptest.NewRequest(http.MethodGet, "/v1/pages?pid=test:book", nil)
	rec := httptest.NewRecorder()
	h.HandlePages(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		PID             string         `json:"pid"`
		PageProgression string         `json:"page_progression"`
		Pages           []pages.Entry  `json:"pages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "test:book", resp.PID)
	require.Equal(t, "rl", resp.PageProgression)
	require.Len(t, resp.Pages, 2)
	require.Equal(t, "test:p1", resp.Pages[0].PID)
}

func TestHandlePagesRequiresPID(t *testing.T) {
	h, _ := newQueryHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/pages", nil)
	rec := httptest.NewRecorder()
	h.HandlePages(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHighlights(t *testing.T) {
	h, store := newQueryHandler(t)
	store.AddObject(&repository.Object{
		PID:    "test:page-1",
		Models: []string{repository.ModelPage},
		Datastreams: map[string]*repository.Datastream{
			"HOCR": {ID: "HOCR", MimeType: "text/html", Content: []byte(
				`<div class="ocr_page" title='image "p.tif"; bbox 0 0 100 200'>` +
					`<span title="bbox 1 2 3 4"><span>cat</span></span></div>`)},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/highlights?pid=test:page-1&term=Cat", nil)
	rec := httptest.NewRecorder()
	h.HandleHighlights(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp pipeline.Highlights
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Boxes, 1)
	require.Equal(t, pipeline.BoundingBox{Left: 1, Top: 2, Right: 3, Bottom: 4}, resp.Boxes[0])
	require.NotNil(t, resp.Width)
	require.Equal(t, 100, *resp.Width)
}

func TestHandleHighlightsUnknownObject(t *testing.T) {
	h, _ := newQueryHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/highlights?pid=test:nope&term=cat", nil)
	rec := httptest.NewRecorder()
	h.HandleHighlights(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHighlightsRequiresParams(t *testing.T) {
	h, _ := newQueryHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/highlights?pid=test:page-1", nil)
	rec := httptest.NewRecorder()
	h.HandleHighlights(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
