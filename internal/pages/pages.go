// Package pages enumerates the ordered member pages of a paged-content object.
package pages

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/tendant/paged-content-pipeline/internal/relations"
)

// Entry is one member page of a paged-content object. Sequence numbers are
// 1-based and not necessarily contiguous; the relationship store is the
// source of truth.
type Entry struct {
	PID      string `json:"pid"`
	Label    string `json:"label"`
	Sequence int    `json:"sequence"`
}

// Enumerator resolves member pages and reading direction from relationships
type Enumerator struct {
	rels *relations.Adapter
}

// NewEnumerator creates a page enumerator over the given relationship adapter
func NewEnumerator(rels *relations.Adapter) *Enumerator {
	return &Enumerator{rels: rels}
}

// GetPages returns the object's member pages ordered by numeric sequence
// number ascending. Pages without a parseable sequence number sort as 0 and
// keep their relative store order; duplicate PIDs collapse to one entry,
// last assertion wins.
func (e *Enumerator) GetPages(ctx context.Context, pid string) ([]Entry, error) {
	members, err := e.rels.MembersOf(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate pages of %s: %w", pid, err)
	}

	entries := make([]Entry, 0, len(members))
	index := make(map[string]int, len(members))

	for _, member := range members {
		entry := Entry{PID: member}

		if label, ok, err := e.rels.Literal(ctx, member, relations.PredicateLabel); err != nil {
			return nil, err
		} else if ok {
			entry.Label = label
		}

		if seq, ok, err := e.rels.Literal(ctx, member, relations.PredicateSequenceNumber); err != nil {
			return nil, err
		} else if ok {
			if n, err := strconv.Atoi(seq); err == nil {
				entry.Sequence = n
			}
		}

		if i, seen := index[member]; seen {
			entries[i] = entry
			continue
		}
		index[member] = len(entries)
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Sequence < entries[j].Sequence
	})
	return entries, nil
}

// GetPageProgression returns the object's reading direction, "lr" or "rl",
// defaulting to "lr" when none is recorded
func (e *Enumerator) GetPageProgression(ctx context.Context, pid string) (string, error) {
	return e.rels.PageProgression(ctx, pid)
}
