package pipeline

// DeriveRequest represents a request to derive content for a repository object
type DeriveRequest struct {
	PID     string            `json:"pid"`
	Job     string            `json:"job"` // page_pdf, page_ocr, page_images, book_pdf, thumbnail
	Options map[string]string `json:"options,omitempty"`
}

// DeriveResponse represents the response from triggering derivation
type DeriveResponse struct {
	RunID           string `json:"run_id"`
	DedupeSeenCount int    `json:"dedupe_seen_count"`
}

// JobType constants
const (
	JobPagePDF    = "page_pdf"
	JobPageOCR    = "page_ocr"
	JobPageImages = "page_images"
	JobBookPDF    = "book_pdf"
	JobThumbnail  = "thumbnail"
)

// Datastream id constants (match repository conventions)
const (
	DSIDObject    = "OBJ"
	DSIDPDF       = "PDF"
	DSIDOCR       = "OCR"
	DSIDHOCR      = "HOCR"
	DSIDThumbnail = "TN"
	DSIDJPG       = "JPG"
	DSIDJP2       = "JP2"
)

// BoundingBox is a word-level pixel rectangle on a page image.
// Well-formed input always has Left < Right and Top < Bottom.
type BoundingBox struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Highlights is the result of a term search over a page's HOCR datastream.
// Width and Height are nil when the document carries no page container.
type Highlights struct {
	Boxes  []BoundingBox `json:"boxes"`
	Width  *int          `json:"width,omitempty"`
	Height *int          `json:"height,omitempty"`
}
