// Package relations is the typed adapter over the repository's relationship
// store: page membership, ordering, reading direction, and OCR settings are
// all recorded as triples on the objects involved.
package relations

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tendant/paged-content-pipeline/internal/repository"
)

// Relationship predicates used by the paged-content model
const (
	PredicateMemberOf        = "rel:isMemberOf"
	PredicateLabel           = "rel:label"
	PredicateSequenceNumber  = "rel:isSequenceNumber"
	PredicatePageProgression = "rel:hasPageProgression"
	PredicateLanguage        = "rel:hasLanguage"
	PredicatePreprocess      = "rel:preprocess"
)

// Page progression values
const (
	ProgressionLeftToRight = "lr"
	ProgressionRightToLeft = "rl"
)

// OCRSettings are the per-object OCR options persisted as relationships so
// repeated runs reuse prior choices
type OCRSettings struct {
	Language   string
	Preprocess bool
}

// Adapter provides typed access to relationship assertions
type Adapter struct {
	triples repository.TripleStore
}

// New creates a relationship adapter over the given triple store
func New(triples repository.TripleStore) *Adapter {
	return &Adapter{triples: triples}
}

// MembersOf returns the PIDs asserting membership in the given object, in
// store order
func (a *Adapter) MembersOf(ctx context.Context, pid string) ([]string, error) {
	rows, err := a.triples.Query(ctx, repository.Pattern{
		Predicate: PredicateMemberOf,
		Object:    pid,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query members of %s: %w", pid, err)
	}

	members := make([]string, 0, len(rows))
	for _, t := range rows {
		members = append(members, t.Subject)
	}
	return members, nil
}

// Literal returns the first literal value asserted for the predicate on the
// subject, and whether one exists
func (a *Adapter) Literal(ctx context.Context, subject, predicate string) (string, bool, error) {
	rows, err := a.triples.Query(ctx, repository.Pattern{
		Subject:   subject,
		Predicate: predicate,
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to query %s on %s: %w", predicate, subject, err)
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].Object, true, nil
}

// SetLiteral asserts a literal value for the predicate on the subject,
// removing any prior assertions first. At most one assertion per predicate
// exists at a time.
func (a *Adapter) SetLiteral(ctx context.Context, subject, predicate, value string) error {
	pattern := repository.Pattern{Subject: subject, Predicate: predicate}
	if err := a.triples.Remove(ctx, pattern); err != nil {
		return fmt.Errorf("failed to clear %s on %s: %w", predicate, subject, err)
	}

	err := a.triples.Add(ctx, repository.Triple{
		Subject:   subject,
		Predicate: predicate,
		Object:    value,
		IsLiteral: true,
	})
	if err != nil {
		return fmt.Errorf("failed to assert %s on %s: %w", predicate, subject, err)
	}
	return nil
}

// PageProgression returns the object's reading direction, defaulting to
// left-to-right when no relation is recorded
func (a *Adapter) PageProgression(ctx context.Context, pid string) (string, error) {
	value, ok, err := a.Literal(ctx, pid, PredicatePageProgression)
	if err != nil {
		return "", err
	}
	if !ok {
		return ProgressionLeftToRight, nil
	}
	return value, nil
}

// SetPageProgression records the object's reading direction
func (a *Adapter) SetPageProgression(ctx context.Context, pid, progression string) error {
	return a.SetLiteral(ctx, pid, PredicatePageProgression, progression)
}

// OCRSettings returns the OCR options recorded on the object, applying
// defaults (language "eng", no preprocessing) for missing assertions
func (a *Adapter) OCRSettings(ctx context.Context, pid string) (OCRSettings, error) {
	settings := OCRSettings{Language: "eng"}

	if lang, ok, err := a.Literal(ctx, pid, PredicateLanguage); err != nil {
		return settings, err
	} else if ok {
		settings.Language = lang
	}

	if pre, ok, err := a.Literal(ctx, pid, PredicatePreprocess); err != nil {
		return settings, err
	} else if ok {
		settings.Preprocess, _ = strconv.ParseBool(pre)
	}

	return settings, nil
}

// SetOCRSettings records the OCR options on the object, overwriting prior values
func (a *Adapter) SetOCRSettings(ctx context.Context, pid string, settings OCRSettings) error {
	if err := a.SetLiteral(ctx, pid, PredicateLanguage, settings.Language); err != nil {
		return err
	}
	return a.SetLiteral(ctx, pid, PredicatePreprocess, strconv.FormatBool(settings.Preprocess))
}
