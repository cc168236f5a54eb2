package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Amendor47/Studying-coach/internal/domain"
	"github.com/Amendor47/Studying-coach/internal/identity"
)

// SaveDrafts stores generated drafts, keyed by content identity.
// Re-ingesting the same text is a no-op per draft.
func (db *DB) SaveDrafts(drafts []domain.Draft, now time.Time) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin draft transaction: %w", err)
	}
	defer tx.Rollback()

	for _, d := range drafts {
		payload, err := json.Marshal(d.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal draft payload: %w", err)
		}
		_, err = tx.Exec(`
			INSERT OR IGNORE INTO drafts (key, kind, theme, payload, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, identity.ForDraft(d), string(d.Kind), d.Theme, string(payload), now)
		if err != nil {
			return fmt.Errorf("failed to insert draft: %w", err)
		}
	}

	return tx.Commit()
}

// ListDrafts loads all pending drafts, ordered by key for stable output.
func (db *DB) ListDrafts() ([]domain.Draft, error) {
	rows, err := db.conn.Query(`SELECT kind, theme, payload FROM drafts ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var drafts []domain.Draft
	for rows.Next() {
		var kind, theme, payload string
		if err := rows.Scan(&kind, &theme, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan draft row: %w", err)
		}
		var d domain.Draft
		if err := json.Unmarshal([]byte(payload), &d.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal draft payload: %w", err)
		}
		d.Kind = domain.Kind(kind)
		d.Theme = theme
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

// ClearDrafts removes all pending drafts, typically after a batch has
// been through acceptance.
func (db *DB) ClearDrafts() error {
	if _, err := db.conn.Exec(`DELETE FROM drafts`); err != nil {
		return fmt.Errorf("failed to clear drafts: %w", err)
	}
	return nil
}

// CountDrafts returns the number of pending drafts.
func (db *DB) CountDrafts() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM drafts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count drafts: %w", err)
	}
	return n, nil
}
