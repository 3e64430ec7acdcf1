package hocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tendant/paged-content-pipeline/internal/repository"
	"github.com/tendant/paged-content-pipeline/pkg/pipeline"
)

const sampleHOCR = `<html><body>
<div class="ocr_page" title='image "page1.tif"; bbox 0 0 2000 3000'>
  <span class="ocr_line" title="bbox 90 190 900 450">
    <span class="ocrx_word" title="bbox 100 200 180 250"><span>The</span></span>
    <span class="ocrx_word" title="bbox 200 200 300 250"><span>Cat</span></span>
    <span class="ocrx_word" title="bbox 320 200 400 250"><span>sat.</span></span>
    <span class="ocrx_word" title="bbox 100 300 180 350"><span>the</span></span>
  </span>
</div>
</body></html>`

func newExtractor(t *testing.T, hocrContent string) (*Extractor, *repository.Object) {
	t.Helper()
	store := repository.NewMemoryStore()
	obj := &repository.Object{
		PID:         "test:page-1",
		Models:      []string{repository.ModelPage},
		Datastreams: map[string]*repository.Datastream{},
	}
	if hocrContent != "" {
		obj.Datastreams["HOCR"] = &repository.Datastream{
			ID:       "HOCR",
			MimeType: "text/html",
			Content:  []byte(hocrContent),
		}
	}
	store.AddObject(obj)
	return NewExtractor(store), obj
}

func TestGetHighlightsCaseInsensitiveMatch(t *testing.T) {
	e, obj := newExtractor(t, sampleHOCR)

	result := e.GetHighlights(context.Background(), obj, "CAT", "")
	require.Len(t, result.Boxes, 1)
	require.Equal(t, pipeline.BoundingBox{Left: 200, Top: 200, Right: 300, Bottom: 250}, result.Boxes[0])

	require.NotNil(t, result.Width)
	require.NotNil(t, result.Height)
	require.Equal(t, 2000, *result.Width)
	require.Equal(t, 3000, *result.Height)
}

func TestGetHighlightsMultiWordUnion(t *testing.T) {
	e, obj := newExtractor(t, sampleHOCR)

	// "the" matches twice, "cat" once; sub-terms are unioned
	result := e.GetHighlights(context.Background(), obj, "the cat", "")
	require.Len(t, result.Boxes, 3)
	require.Equal(t, pipeline.BoundingBox{Left: 100, Top: 200, Right: 180, Bottom: 250}, result.Boxes[0])
	require.Equal(t, pipeline.BoundingBox{Left: 100, Top: 300, Right: 180, Bottom: 350}, result.Boxes[1])
	require.Equal(t, pipeline.BoundingBox{Left: 200, Top: 200, Right: 300, Bottom: 250}, result.Boxes[2])
}

func TestGetHighlightsURLEncodedTerm(t *testing.T) {
	e, obj := newExtractor(t, sampleHOCR)

	result := e.GetHighlights(context.Background(), obj, "the%20cat", "")
	require.Len(t, result.Boxes, 3)
}

func TestGetHighlightsExactWordOnly(t *testing.T) {
	e, obj := newExtractor(t, sampleHOCR)

	// "sat" is stored as "sat." and exact matching does not strip punctuation
	result := e.GetHighlights(context.Background(), obj, "sat", "")
	require.Empty(t, result.Boxes)
}

func TestGetHighlightsLastPageContainerWins(t *testing.T) {
	content := `<html><body>
<div class="ocr_page" title='image "a.tif"; bbox 0 0 1000 1500'></div>
<div class="ocr_page" title='image "b.tif"; bbox 0 0 2400 3600'></div>
</body></html>`
	e, obj := newExtractor(t, content)

	result := e.GetHighlights(context.Background(), obj, "anything", "")
	require.NotNil(t, result.Width)
	require.Equal(t, 2400, *result.Width)
	require.Equal(t, 3600, *result.Height)
}

func TestGetHighlightsMissingDatastream(t *testing.T) {
	e, obj := newExtractor(t, "")

	result := e.GetHighlights(context.Background(), obj, "cat", "")
	require.NotNil(t, result.Boxes)
	require.Empty(t, result.Boxes)
	require.Nil(t, result.Width)
	require.Nil(t, result.Height)
}

func TestGetHighlightsEmptyDatastream(t *testing.T) {
	e, obj := newExtractor(t, "   \n  ")

	result := e.GetHighlights(context.Background(), obj, "cat", "")
	require.Empty(t, result.Boxes)
	require.Nil(t, result.Width)
}

func TestGetHighlightsMalformedTitles(t *testing.T) {
	content := `<html><body>
<div class="ocr_page" title='image "a.tif"; bbox 0 0 wide tall'>
  <span title="bbox one two three four"><span>cat</span></span>
  <span title="bbox 10 20"><span>cat</span></span>
</div>
</body></html>`
	e, obj := newExtractor(t, content)

	result := e.GetHighlights(context.Background(), obj, "cat", "")
	require.Empty(t, result.Boxes)
	require.Nil(t, result.Width)
	require.Nil(t, result.Height)
}

func TestGetHighlightsAlternateDatastream(t *testing.T) {
	store := repository.NewMemoryStore()
	obj := &repository.Object{
		PID:    "test:page-1",
		Models: []string{repository.ModelPage},
		Datastreams: map[string]*repository.Datastream{
			"HOCR_RAW": {ID: "HOCR_RAW", MimeType: "text/html", Content: []byte(sampleHOCR)},
		},
	}
	store.AddObject(obj)
	e := NewExtractor(store)

	require.Empty(t, e.GetHighlights(context.Background(), obj, "cat", "").Boxes)
	require.Len(t, e.GetHighlights(context.Background(), obj, "cat", "HOCR_RAW").Boxes, 1)
}
