package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"family-os/internal/family"
)

// SQLiteStore keeps each family as a JSON document in the families table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a store over a migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*family.Family, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM families WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load family %s: %w", id, err)
	}
	return decodeFamily(id, []byte(data))
}

func (s *SQLiteStore) Set(ctx context.Context, id string, fam *family.Family) error {
	doc := *fam
	doc.ID = id
	data, err := json.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to encode family %s: %w", id, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO families (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		id, string(data), s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save family %s: %w", id, err)
	}
	return nil
}

// Update rewrites only the given top-level keys of the stored document.
func (s *SQLiteStore) Update(ctx context.Context, id string, fields map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin update: %w", err)
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx, `SELECT data FROM families WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load family %s: %w", id, err)
	}

	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return fmt.Errorf("failed to decode family %s: %w", id, err)
	}
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode field %s: %w", k, err)
		}
		doc[k] = raw
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode family %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE families SET data = ?, updated_at = ? WHERE id = ?`,
		string(merged), s.now().Unix(), id); err != nil {
		return fmt.Errorf("failed to update family %s: %w", id, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) AppendEvent(ctx context.Context, id string, ev family.FeedbackEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback_events (id, family_id, meal, rating, member, style, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, id, ev.Meal, string(ev.Rating), ev.Member, ev.Style, ev.RecordedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to append feedback event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListEvents(ctx context.Context, id string, limit int) ([]family.FeedbackEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, meal, rating, member, style, recorded_at
		FROM feedback_events
		WHERE family_id = ?
		ORDER BY recorded_at DESC, rowid DESC
		LIMIT ?`, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback events: %w", err)
	}
	defer rows.Close()

	var events []family.FeedbackEvent
	for rows.Next() {
		var (
			ev     family.FeedbackEvent
			rating string
			ms     int64
		)
		if err := rows.Scan(&ev.ID, &ev.Meal, &rating, &ev.Member, &ev.Style, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan feedback event: %w", err)
		}
		ev.Rating = family.Rating(rating)
		ev.RecordedAt = time.UnixMilli(ms).UTC()
		events = append(events, ev)
	}
	return events, rows.Err()
}
