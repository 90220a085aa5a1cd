// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS usage_events (
	id                TEXT PRIMARY KEY,
	at                INTEGER NOT NULL,
	provider_id       TEXT NOT NULL,
	model             TEXT NOT NULL,
	operation         TEXT NOT NULL,
	success           INTEGER NOT NULL,
	error_code        INTEGER NOT NULL,
	used_remote       INTEGER NOT NULL,
	prompt_tokens     INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	latency_ms        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_at ON usage_events(at);
CREATE INDEX IF NOT EXISTS idx_usage_provider ON usage_events(provider_id);
`

// =============================================================================
// USAGE STORE
// =============================================================================

// UsageStore persists events to a local SQLite database. It implements
// Sink; Record logs failures instead of surfacing them so a broken
// telemetry database never fails a chat request.
type UsageStore struct {
	db *sql.DB
}

// OpenUsageStore opens (or creates) the usage database at path.
func OpenUsageStore(path string) (*UsageStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init usage schema: %w", err)
	}

	return &UsageStore{db: db}, nil
}

// Record inserts one event.
func (s *UsageStore) Record(evt *Event) {
	_, err := s.db.Exec(`
		INSERT INTO usage_events
			(id, at, provider_id, model, operation, success, error_code,
			 used_remote, prompt_tokens, completion_tokens, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.ID, evt.Timestamp.UnixMilli(), evt.ProviderID, evt.Model,
		evt.Operation, boolInt(evt.Success), evt.ErrorCode,
		boolInt(evt.UsedRemote), evt.PromptTokens, evt.CompletionTokens,
		evt.Latency.Milliseconds(),
	)
	if err != nil {
		log.Printf("usage store insert failed: %v", err)
	}
}

// Close releases the database handle.
func (s *UsageStore) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// =============================================================================
// AGGREGATES
// =============================================================================

// Summary aggregates usage over a window.
type Summary struct {
	Events           int
	Failures         int
	RemoteEvents     int
	PromptTokens     int
	CompletionTokens int
}

// ProviderSummary is a Summary attributed to one provider.
type ProviderSummary struct {
	ProviderID string
	Summary
}

// Summarize aggregates all events since the given time.
func (s *UsageStore) Summarize(since time.Time) (*Summary, error) {
	row := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(1 - success), 0),
		       COALESCE(SUM(used_remote), 0),
		       COALESCE(SUM(prompt_tokens), 0),
		       COALESCE(SUM(completion_tokens), 0)
		FROM usage_events WHERE at >= ?`, since.UnixMilli())

	var sum Summary
	if err := row.Scan(&sum.Events, &sum.Failures, &sum.RemoteEvents,
		&sum.PromptTokens, &sum.CompletionTokens); err != nil {
		return nil, fmt.Errorf("failed to summarize usage: %w", err)
	}
	return &sum, nil
}

// SummarizeByProvider aggregates per-provider usage since the given time,
// ordered by event count descending.
func (s *UsageStore) SummarizeByProvider(since time.Time) ([]ProviderSummary, error) {
	rows, err := s.db.Query(`
		SELECT provider_id,
		       COUNT(*),
		       COALESCE(SUM(1 - success), 0),
		       COALESCE(SUM(used_remote), 0),
		       COALESCE(SUM(prompt_tokens), 0),
		       COALESCE(SUM(completion_tokens), 0)
		FROM usage_events WHERE at >= ?
		GROUP BY provider_id
		ORDER BY COUNT(*) DESC`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query provider usage: %w", err)
	}
	defer rows.Close()

	var out []ProviderSummary
	for rows.Next() {
		var ps ProviderSummary
		if err := rows.Scan(&ps.ProviderID, &ps.Events, &ps.Failures,
			&ps.RemoteEvents, &ps.PromptTokens, &ps.CompletionTokens); err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}
