// Package derivatives decides which derivative datastreams can be generated
// for a repository object and stages source content for external tools.
package derivatives

import (
	"github.com/tendant/paged-content-pipeline/pkg/pipeline"
)

// Kind identifies a derivative datastream kind. The set is closed: every
// kind carries its source datastream id and its capability class as static
// data.
type Kind string

// Derivative kinds
const (
	KindPDF  Kind = pipeline.DSIDPDF
	KindOCR  Kind = pipeline.DSIDOCR
	KindHOCR Kind = pipeline.DSIDHOCR
	KindTN   Kind = pipeline.DSIDThumbnail
	KindJPG  Kind = pipeline.DSIDJPG
	KindJP2  Kind = pipeline.DSIDJP2
)

// Capability identifies the external backend a derivative kind depends on
type Capability string

// Capability classes
const (
	CapabilityImage Capability = "image"
	CapabilityPDF   Capability = "pdf"
	CapabilityOCR   Capability = "ocr"
)

// Kinds lists every derivative kind
var Kinds = []Kind{KindPDF, KindOCR, KindHOCR, KindTN, KindJPG, KindJP2}

// Valid reports whether k is a recognized derivative kind
func (k Kind) Valid() bool {
	switch k {
	case KindPDF, KindOCR, KindHOCR, KindTN, KindJPG, KindJP2:
		return true
	}
	return false
}

// Source returns the datastream id the kind derives from. Every kind has
// exactly one declared source.
func (k Kind) Source() string {
	return pipeline.DSIDObject
}

// Capability returns the capability class required to generate the kind
func (k Kind) Capability() Capability {
	switch k {
	case KindPDF:
		return CapabilityPDF
	case KindOCR, KindHOCR:
		return CapabilityOCR
	default:
		return CapabilityImage
	}
}

// Capabilities answers whether an external backend is installed. Probes are
// pure queries with no side effects.
type Capabilities interface {
	Available(c Capability) bool
}
