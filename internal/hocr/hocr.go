// Package hocr extracts word bounding boxes from a page's HOCR datastream
// to support text-search overlay in a viewer.
//
// HOCR encodes positional data in title attributes: word containers carry
// "bbox L T R B", and the page container (class ocr_page) carries
// `image "file"; bbox 0 0 W H`.
package hocr

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/tendant/paged-content-pipeline/internal/repository"
	"github.com/tendant/paged-content-pipeline/pkg/pipeline"
)

// Extractor searches HOCR datastreams for term highlights
type Extractor struct {
	store repository.Store
}

// NewExtractor creates a highlight extractor
func NewExtractor(store repository.Store) *Extractor {
	return &Extractor{store: store}
}

// candidate is a text-bearing span with its parent's title attribute
type candidate struct {
	text        string
	parentTitle string
}

// GetHighlights returns the bounding boxes of every word matching the term,
// plus the page pixel dimensions. The term is URL-decoded, lower-cased, and
// split on whitespace; each sub-term matches words case-insensitively and
// exactly, and matches are unioned (OR semantics, no deduplication). A
// missing or unparseable datastream yields an empty result, never an error.
func (e *Extractor) GetHighlights(ctx context.Context, obj *repository.Object, term, dsid string) pipeline.Highlights {
	empty := pipeline.Highlights{Boxes: []pipeline.BoundingBox{}}
	if dsid == "" {
		dsid = pipeline.DSIDHOCR
	}

	if !obj.HasDatastream(dsid) {
		return empty
	}
	reader, err := e.store.ReadDatastream(ctx, obj.PID, dsid)
	if err != nil {
		return empty
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil || len(bytes.TrimSpace(content)) == 0 {
		return empty
	}

	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return empty
	}

	candidates, width, height := collect(doc)

	result := pipeline.Highlights{
		Boxes:  []pipeline.BoundingBox{},
		Width:  width,
		Height: height,
	}
	for _, sub := range subTerms(term) {
		for _, c := range candidates {
			if c.text != sub {
				continue
			}
			if box, ok := parseBBox(c.parentTitle); ok {
				result.Boxes = append(result.Boxes, box)
			}
		}
	}
	return result
}

// subTerms lower-cases and URL-decodes the search term and splits it into
// whitespace-separated sub-terms
func subTerms(term string) []string {
	if decoded, err := url.QueryUnescape(term); err == nil {
		term = decoded
	}
	return strings.Fields(strings.ToLower(term))
}

// collect walks the document once, gathering every span whose direct text
// could match a sub-term, and the page container dimensions. When multiple
// page containers exist the last one's dimensions win.
func collect(doc *html.Node) ([]candidate, *int, *int) {
	var candidates []candidate
	var width, height *int

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if strings.Contains(attr(n, "class"), "ocr_page") {
				if w, h, ok := parsePageDims(attr(n, "title")); ok {
					width, height = &w, &h
				}
			}
			if n.Data == "span" && n.Parent != nil && n.Parent.Type == html.ElementNode {
				if text := directText(n); text != "" {
					candidates = append(candidates, candidate{
						text:        strings.ToLower(text),
						parentTitle: attr(n.Parent, "title"),
					})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return candidates, width, height
}

// directText concatenates the element's immediate text children
func directText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(sb.String())
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// parseBBox reads a word container title of the form "bbox L T R B".
// Token 0 is the literal "bbox" marker and is skipped.
func parseBBox(title string) (pipeline.BoundingBox, bool) {
	tokens := strings.Fields(title)
	if len(tokens) < 5 {
		return pipeline.BoundingBox{}, false
	}

	values := make([]int, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.Atoi(strings.TrimRight(tokens[i+1], ";"))
		if err != nil {
			return pipeline.BoundingBox{}, false
		}
		values[i] = v
	}
	return pipeline.BoundingBox{
		Left:   values[0],
		Top:    values[1],
		Right:  values[2],
		Bottom: values[3],
	}, true
}

// parsePageDims reads the page container title of the form
// `image "file"; bbox 0 0 W H`: tokens 5 and 6 are the page dimensions.
func parsePageDims(title string) (int, int, bool) {
	tokens := strings.Fields(title)
	if len(tokens) < 7 {
		return 0, 0, false
	}
	w, err := strconv.Atoi(strings.TrimRight(tokens[5], ";"))
	if err != nil {
		return 0, 0, false
	}
	h, err := strconv.Atoi(strings.TrimRight(tokens[6], ";"))
	if err != nil {
		return 0, 0, false
	}
	return w, h, true
}
