package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"family-os/internal/family"
)

// Session is the selected member of one client: a browser or a chat user.
type Session struct {
	ID        string
	FamilyID  string
	Member    string
	Role      family.Role
	Channel   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsChild reports whether the session gets the child view.
func (s *Session) IsChild() bool {
	return s.Role == family.RoleChild
}

// Repository provides access to session persistence operations
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository instance
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a new session
func (r *Repository) Create(ctx context.Context, s *Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, family_id, member, role, channel, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.FamilyID, s.Member, string(s.Role), s.Channel, s.CreatedAt.Unix(), s.ExpiresAt.Unix())
	return err
}

// Get retrieves a non-expired session by id. It returns nil, nil when there is none.
func (r *Repository) Get(ctx context.Context, id string, now time.Time) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, family_id, member, role, channel, created_at, expires_at
		FROM sessions
		WHERE id = ? AND expires_at > ?`, id, now.Unix())
	return scanSession(row)
}

// GetActiveByChannel retrieves the most recent active session for a channel (non-expired)
func (r *Repository) GetActiveByChannel(ctx context.Context, channel string, now time.Time) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, family_id, member, role, channel, created_at, expires_at
		FROM sessions
		WHERE channel = ? AND expires_at > ?
		ORDER BY created_at DESC
		LIMIT 1`, channel, now.Unix())
	return scanSession(row)
}

// Delete removes a session
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// DeleteByChannel removes every session of a channel
func (r *Repository) DeleteByChannel(ctx context.Context, channel string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE channel = ?`, channel)
	return err
}

// CleanupExpired removes all expired sessions (optional maintenance task)
func (r *Repository) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSession(row *sql.Row) (*Session, error) {
	var (
		s                  Session
		role               string
		created, expiresAt int64
	)
	err := row.Scan(&s.ID, &s.FamilyID, &s.Member, &role, &s.Channel, &created, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Role = family.Role(role)
	s.CreatedAt = time.Unix(created, 0).UTC()
	s.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &s, nil
}
