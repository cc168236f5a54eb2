package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Amendor47/Studying-coach/internal/domain"
	"github.com/Amendor47/Studying-coach/internal/sm2"
)

// InsertItems stores a batch of accepted items in one transaction.
// Inserting an item whose ID already exists is an error: acceptance is
// expected to have deduplicated against the store's snapshot first.
func (db *DB) InsertItems(items []domain.StudyItem) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin insert transaction: %w", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		if item.SRS == nil {
			return fmt.Errorf("item %s has no srs state", item.ID)
		}
		payload, err := json.Marshal(item.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload for item %s: %w", item.ID, err)
		}
		_, err = tx.Exec(`
			INSERT INTO items (id, kind, theme, status, payload, interval_days, ease_factor, repetitions, next_review, created_at, last_reviewed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			item.ID,
			string(item.Kind),
			item.Theme,
			string(item.Status),
			string(payload),
			item.SRS.IntervalDays,
			item.SRS.EaseFactor,
			item.SRS.Repetitions,
			nullTime(item.SRS.NextReview),
			item.CreatedAt,
			nullTime(item.LastReviewedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert item %s: %w", item.ID, err)
		}
	}

	return tx.Commit()
}

const itemColumns = `id, kind, theme, status, payload, interval_days, ease_factor, repetitions, next_review, created_at, last_reviewed_at, version`

// scanItem reads one item row. The version is returned separately; it is
// a storage concern, not part of the domain model.
func scanItem(row interface{ Scan(...any) error }) (domain.StudyItem, int64, error) {
	var (
		item         domain.StudyItem
		kind, status string
		payload      string
		srs          domain.SRSState
		nextReview   sql.NullTime
		lastReviewed sql.NullTime
		version      int64
	)
	err := row.Scan(
		&item.ID,
		&kind,
		&item.Theme,
		&status,
		&payload,
		&srs.IntervalDays,
		&srs.EaseFactor,
		&srs.Repetitions,
		&nextReview,
		&item.CreatedAt,
		&lastReviewed,
		&version,
	)
	if err != nil {
		return domain.StudyItem{}, 0, err
	}

	if err := json.Unmarshal([]byte(payload), &item.Payload); err != nil {
		return domain.StudyItem{}, 0, fmt.Errorf("failed to unmarshal payload for item %s: %w", item.ID, err)
	}
	item.Kind = domain.Kind(kind)
	item.Status = domain.Status(status)
	if nextReview.Valid {
		t := nextReview.Time
		srs.NextReview = &t
	}
	if lastReviewed.Valid {
		t := lastReviewed.Time
		item.LastReviewedAt = &t
	}
	item.SRS = &srs

	return item, version, nil
}

// GetItem retrieves one item by ID.
func (db *DB) GetItem(id string) (domain.StudyItem, error) {
	row := db.conn.QueryRow(`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, _, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StudyItem{}, fmt.Errorf("%w: item %s", ErrNotFound, id)
		}
		return domain.StudyItem{}, fmt.Errorf("failed to get item %s: %w", id, err)
	}
	return item, nil
}

// ListItems loads a snapshot of every stored item, ordered by ID so
// snapshots are stable across calls.
func (db *DB) ListItems() ([]domain.StudyItem, error) {
	rows, err := db.conn.Query(`SELECT ` + itemColumns + ` FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []domain.StudyItem
	for rows.Next() {
		item, _, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SetStatus transitions an item's lifecycle status.
func (db *DB) SetStatus(id string, status domain.Status) error {
	res, err := db.conn.Exec(`UPDATE items SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to set status for item %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected for item %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: item %s", ErrNotFound, id)
	}
	return nil
}

// ApplyReview grades one item and persists the resulting SRS state.
//
// The update is guarded by the row version read alongside the item: if a
// concurrent review of the same item commits in between, the update
// matches zero rows and ErrConflict is returned so the caller can retry
// against the latest state. Reviews of different items never conflict.
func (db *DB) ApplyReview(id string, quality int, now time.Time) (domain.StudyItem, error) {
	row := db.conn.QueryRow(`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, version, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StudyItem{}, fmt.Errorf("%w: item %s", ErrNotFound, id)
		}
		return domain.StudyItem{}, fmt.Errorf("failed to load item %s for review: %w", id, err)
	}

	updated, err := sm2.Review(item, quality, now)
	if err != nil {
		return domain.StudyItem{}, err
	}

	res, err := db.conn.Exec(`
		UPDATE items
		SET interval_days = ?, ease_factor = ?, repetitions = ?, next_review = ?, last_reviewed_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`,
		updated.SRS.IntervalDays,
		updated.SRS.EaseFactor,
		updated.SRS.Repetitions,
		nullTime(updated.SRS.NextReview),
		nullTime(updated.LastReviewedAt),
		id,
		version,
	)
	if err != nil {
		return domain.StudyItem{}, fmt.Errorf("failed to update srs for item %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.StudyItem{}, fmt.Errorf("failed to read rows affected for item %s: %w", id, err)
	}
	if n == 0 {
		return domain.StudyItem{}, fmt.Errorf("%w: item %s", ErrConflict, id)
	}

	return updated, nil
}

// ThemeSummaries recomputes per-theme totals and due counts. Only
// accepted items count as due; a NULL next_review means never reviewed,
// which is due immediately.
func (db *DB) ThemeSummaries(now time.Time) ([]domain.ThemeSummary, error) {
	rows, err := db.conn.Query(`
		SELECT theme,
			COUNT(*),
			SUM(CASE WHEN status = 'accepted' AND (next_review IS NULL OR next_review <= ?) THEN 1 ELSE 0 END)
		FROM items
		GROUP BY theme
		ORDER BY theme
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to compute theme summaries: %w", err)
	}
	defer rows.Close()

	var summaries []domain.ThemeSummary
	for rows.Next() {
		var s domain.ThemeSummary
		if err := rows.Scan(&s.Theme, &s.TotalItems, &s.DueCount); err != nil {
			return nil, fmt.Errorf("failed to scan theme summary row: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// CountByStatus returns how many items sit in each lifecycle status.
func (db *DB) CountByStatus() (map[domain.Status]int, error) {
	rows, err := db.conn.Query(`SELECT status, COUNT(*) FROM items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count items by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count row: %w", err)
		}
		counts[domain.Status(status)] = n
	}
	return counts, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
