// Package dedupe tracks repeated derivation submissions per object and job.
package dedupe

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// Tracker tracks duplicate derivation submissions
type Tracker struct {
	db *sql.DB
}

// NewTracker creates a new dedupe tracker
func NewTracker(db *sql.DB) (*Tracker, error) {
	tracker := &Tracker{db: db}

	if err := tracker.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure dedupe table: %w", err)
	}

	return tracker, nil
}

// ensureTable creates the derivation_dedupe table if it doesn't exist
func (t *Tracker) ensureTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS derivation_dedupe (
			pid TEXT NOT NULL,
			job TEXT NOT NULL,
			first_seen_at TIMESTAMPTZ DEFAULT NOW(),
			last_seen_at TIMESTAMPTZ DEFAULT NOW(),
			seen_count INTEGER DEFAULT 1,
			PRIMARY KEY (pid, job)
		)
	`

	_, err := t.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create derivation_dedupe table: %w", err)
	}

	log.Printf("✓ derivation_dedupe table ready")
	return nil
}

// Record records a derivation submission and returns the seen count
func (t *Tracker) Record(ctx context.Context, pid, job string) (int, error) {
	// Upsert: increment seen_count if exists, insert if not
	query := `
		INSERT INTO derivation_dedupe (pid, job, first_seen_at, last_seen_at, seen_count)
		VALUES ($1, $2, NOW(), NOW(), 1)
		ON CONFLICT (pid, job) DO UPDATE
		SET last_seen_at = NOW(),
		    seen_count = derivation_dedupe.seen_count + 1
		RETURNING seen_count
	`

	var seenCount int
	err := t.db.QueryRowContext(ctx, query, pid, job).Scan(&seenCount)
	if err != nil {
		return 0, fmt.Errorf("failed to record dedupe: %w", err)
	}

	return seenCount, nil
}

// GetSeenCount retrieves the seen count for an object and job
func (t *Tracker) GetSeenCount(ctx context.Context, pid, job string) (int, error) {
	query := `SELECT seen_count FROM derivation_dedupe WHERE pid = $1 AND job = $2`

	var seenCount int
	err := t.db.QueryRowContext(ctx, query, pid, job).Scan(&seenCount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get seen count: %w", err)
	}

	return seenCount, nil
}
