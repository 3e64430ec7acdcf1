package repository

import (
	"context"
	"errors"
	"io"
)

// Content model tags recognized as paged content or pages thereof
const (
	ModelBook          = "pagedcontent:book"
	ModelNewspaper     = "pagedcontent:newspaper"
	ModelPage          = "pagedcontent:page"
	ModelBookPage      = "pagedcontent:bookPage"
	ModelNewspaperPage = "pagedcontent:newspaperPage"
)

// Datastream control groups
const (
	ControlGroupManaged = "M"
	ControlGroupInline  = "X"
)

// ErrNotFound is returned when an object or datastream does not exist
var ErrNotFound = errors.New("not found")

// Datastream is a named binary part attached to a repository object
type Datastream struct {
	ID           string
	Label        string
	MimeType     string
	ControlGroup string
	Content      []byte
}

// Object is a handle on a repository object. Datastream content is owned by
// the store; the map here carries metadata plus whatever content the store
// chose to inline.
type Object struct {
	PID         string
	Label       string
	Models      []string
	Datastreams map[string]*Datastream
}

// HasModel reports whether the object carries the given content model tag
func (o *Object) HasModel(model string) bool {
	for _, m := range o.Models {
		if m == model {
			return true
		}
	}
	return false
}

// HasDatastream reports whether the object carries the given datastream
func (o *Object) HasDatastream(dsid string) bool {
	_, ok := o.Datastreams[dsid]
	return ok
}

// Store provides access to repository objects and their datastreams
type Store interface {
	// GetObject returns the object with the given PID
	GetObject(ctx context.Context, pid string) (*Object, error)

	// ReadDatastream returns a reader over the datastream's content
	ReadDatastream(ctx context.Context, pid, dsid string) (io.ReadCloser, error)

	// WriteDatastream creates the datastream if absent, otherwise overwrites
	// its content, label, and MIME type
	WriteDatastream(ctx context.Context, pid string, ds Datastream, r io.Reader) error
}

// Triple is a subject-predicate-object assertion attached to an object
type Triple struct {
	Subject   string
	Predicate string
	Object    string
	IsLiteral bool
}

// Pattern matches triples; empty fields are wildcards
type Pattern struct {
	Subject   string
	Predicate string
	Object    string
}

// Matches reports whether the triple matches the pattern
func (p Pattern) Matches(t Triple) bool {
	if p.Subject != "" && p.Subject != t.Subject {
		return false
	}
	if p.Predicate != "" && p.Predicate != t.Predicate {
		return false
	}
	if p.Object != "" && p.Object != t.Object {
		return false
	}
	return true
}

// TripleStore provides access to relationship assertions
type TripleStore interface {
	// Query returns matching triples in insertion order
	Query(ctx context.Context, p Pattern) ([]Triple, error)

	// Add appends a triple
	Add(ctx context.Context, t Triple) error

	// Remove deletes all triples matching the pattern
	Remove(ctx context.Context, p Pattern) error
}
