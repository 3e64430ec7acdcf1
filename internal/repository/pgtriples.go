package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
)

// PGTripleStore is a TripleStore backed by a Postgres table. Rows are
// returned in insertion order.
type PGTripleStore struct {
	db *sql.DB
}

// NewPGTripleStore creates a Postgres triple store, creating the table if needed
func NewPGTripleStore(db *sql.DB) (*PGTripleStore, error) {
	ts := &PGTripleStore{db: db}
	if err := ts.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure relationships table: %w", err)
	}
	return ts, nil
}

func (ts *PGTripleStore) ensureTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS relationships (
			id BIGSERIAL PRIMARY KEY,
			subject TEXT NOT NULL,
			predicate TEXT NOT NULL,
			object TEXT NOT NULL,
			is_literal BOOLEAN NOT NULL DEFAULT FALSE
		)
	`

	_, err := ts.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create relationships table: %w", err)
	}

	log.Printf("✓ relationships table ready")
	return nil
}

func patternClause(p Pattern) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("subject", p.Subject)
	add("predicate", p.Predicate)
	add("object", p.Object)

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Query returns matching triples in insertion order
func (ts *PGTripleStore) Query(ctx context.Context, p Pattern) ([]Triple, error) {
	where, args := patternClause(p)
	query := "SELECT subject, predicate, object, is_literal FROM relationships" + where + " ORDER BY id"

	rows, err := ts.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()

	var out []Triple
	for rows.Next() {
		var t Triple
		if err := rows.Scan(&t.Subject, &t.Predicate, &t.Object, &t.IsLiteral); err != nil {
			return nil, fmt.Errorf("failed to scan relationship row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read relationship rows: %w", err)
	}
	return out, nil
}

// Add appends a triple
func (ts *PGTripleStore) Add(ctx context.Context, t Triple) error {
	query := `INSERT INTO relationships (subject, predicate, object, is_literal) VALUES ($1, $2, $3, $4)`

	_, err := ts.db.ExecContext(ctx, query, t.Subject, t.Predicate, t.Object, t.IsLiteral)
	if err != nil {
		return fmt.Errorf("failed to insert relationship: %w", err)
	}
	return nil
}

// Remove deletes all triples matching the pattern
func (ts *PGTripleStore) Remove(ctx context.Context, p Pattern) error {
	where, args := patternClause(p)
	query := "DELETE FROM relationships" + where

	_, err := ts.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete relationships: %w", err)
	}
	return nil
}
