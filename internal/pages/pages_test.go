package pages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tendant/paged-content-pipeline/internal/relations"
	"github.com/tendant/paged-content-pipeline/internal/repository"
)

func addPage(t *testing.T, store *repository.MemoryStore, pid, parent, label, seq string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, repository.Triple{Subject: pid, Predicate: relations.PredicateMemberOf, Object: parent}))
	if label != "" {
		require.NoError(t, store.Add(ctx, repository.Triple{Subject: pid, Predicate: relations.PredicateLabel, Object: label, IsLiteral: true}))
	}
	if seq != "" {
		require.NoError(t, store.Add(ctx, repository.Triple{Subject: pid, Predicate: relations.PredicateSequenceNumber, Object: seq, IsLiteral: true}))
	}
}

func TestGetPagesOrdersBySequence(t *testing.T) {
	store := repository.NewMemoryStore()
	enum := NewEnumerator(relations.New(store))

	addPage(t, store, "test:p3", "test:book", "Page 3", "3")
	addPage(t, store, "test:p1", "test:book", "Page 1", "1")
	addPage(t, store, "test:p2", "test:book", "Page 2", "2")

	entries, err := enum.GetPages(context.Background(), "test:book")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, []int{1, 2, 3}, []int{entries[0].Sequence, entries[1].Sequence, entries[2].Sequence})
	require.Equal(t, "test:p1", entries[0].PID)
	require.Equal(t, "Page 1", entries[0].Label)
}

func TestGetPagesUnnumberedSortFirstAndStable(t *testing.T) {
	store := repository.NewMemoryStore()
	enum := NewEnumerator(relations.New(store))

	addPage(t, store, "test:u1", "test:book", "Front cover", "not-a-number")
	addPage(t, store, "test:p2", "test:book", "Page 2", "2")
	addPage(t, store, "test:u2", "test:book", "Back cover", "")
	addPage(t, store, "test:p1", "test:book", "Page 1", "1")

	entries, err := enum.GetPages(context.Background(), "test:book")
	require.NoError(t, err)
	require.Len(t, entries, 4)

	// Unnumbered pages sort as 0, keeping their relative input order
	require.Equal(t, "test:u1", entries[0].PID)
	require.Equal(t, "test:u2", entries[1].PID)
	require.Equal(t, "test:p1", entries[2].PID)
	require.Equal(t, "test:p2", entries[3].PID)
}

func TestGetPagesDuplicateIDLastWins(t *testing.T) {
	store := repository.NewMemoryStore()
	rels := relations.New(store)
	enum := NewEnumerator(rels)

	addPage(t, store, "test:p1", "test:book", "Page 1", "")
	addPage(t, store, "test:p2", "test:book", "Page 2", "2")
	// Duplicate membership assertion for p1; by now it carries a sequence
	require.NoError(t, store.Add(context.Background(), repository.Triple{
		Subject: "test:p1", Predicate: relations.PredicateMemberOf, Object: "test:book",
	}))
	require.NoError(t, rels.SetLiteral(context.Background(), "test:p1", relations.PredicateSequenceNumber, "1"))

	entries, err := enum.GetPages(context.Background(), "test:book")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "test:p1", entries[0].PID)
	require.Equal(t, 1, entries[0].Sequence)
}

func TestGetPagesEmpty(t *testing.T) {
	enum := NewEnumerator(relations.New(repository.NewMemoryStore()))

	entries, err := enum.GetPages(context.Background(), "test:book")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestGetPageProgression(t *testing.T) {
	store := repository.NewMemoryStore()
	rels := relations.New(store)
	enum := NewEnumerator(rels)

	progression, err := enum.GetPageProgression(context.Background(), "test:book")
	require.NoError(t, err)
	require.Equal(t, "lr", progression)

	require.NoError(t, rels.SetPageProgression(context.Background(), "test:book", "rl"))

	progression, err = enum.GetPageProgression(context.Background(), "test:book")
	require.NoError(t, err)
	require.Equal(t, "rl", progression)
}
