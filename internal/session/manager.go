// Package session replaces a global "current user" with explicit sessions
// that are created when a member is picked and torn down on logout.
package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"family-os/internal/family"
)

var (
	// ErrNoSession is returned when a session is missing, expired or ended.
	ErrNoSession = errors.New("no active session")
	// ErrUnknownMember is returned when starting a session for someone not in the family.
	ErrUnknownMember = errors.New("unknown family member")
)

// Claims are carried by session tokens.
type Claims struct {
	SessionID string `json:"sid"`
	Member    string `json:"member"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Manager creates, resolves and ends sessions.
type Manager struct {
	repo   *Repository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager creates a Manager. An empty secret gets a random one, so tokens
// do not survive a restart.
func NewManager(repo *Repository, secret string, ttl time.Duration) (*Manager, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
	}
	return &Manager{repo: repo, secret: key, ttl: ttl, now: time.Now}, nil
}

// Start opens a session for memberName. A non-empty channel replaces any
// session that channel already had.
func (m *Manager) Start(ctx context.Context, fam *family.Family, channel, memberName string) (*Session, error) {
	member, ok := fam.Member(memberName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMember, memberName)
	}
	if channel != "" {
		if err := m.repo.DeleteByChannel(ctx, channel); err != nil {
			return nil, fmt.Errorf("failed to replace session: %w", err)
		}
	}

	now := m.now().UTC().Truncate(time.Second)
	s := &Session{
		ID:        uuid.NewString(),
		FamilyID:  fam.ID,
		Member:    member.Name,
		Role:      member.Role,
		Channel:   channel,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.repo.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// Current returns the live session with the given id.
func (m *Manager) Current(ctx context.Context, id string) (*Session, error) {
	s, err := m.repo.Get(ctx, id, m.now())
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if s == nil {
		return nil, ErrNoSession
	}
	return s, nil
}

// CurrentForChannel returns the live session of a channel.
func (m *Manager) CurrentForChannel(ctx context.Context, channel string) (*Session, error) {
	s, err := m.repo.GetActiveByChannel(ctx, channel, m.now())
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if s == nil {
		return nil, ErrNoSession
	}
	return s, nil
}

// End tears a session down.
func (m *Manager) End(ctx context.Context, id string) error {
	return m.repo.Delete(ctx, id)
}

// EndChannel tears down the sessions of a channel.
func (m *Manager) EndChannel(ctx context.Context, channel string) error {
	return m.repo.DeleteByChannel(ctx, channel)
}

// Cleanup removes expired sessions.
func (m *Manager) Cleanup(ctx context.Context) (int64, error) {
	return m.repo.CleanupExpired(ctx, m.now())
}

// Token signs a handle for s.
func (m *Manager) Token(s *Session) (string, error) {
	claims := Claims{
		SessionID: s.ID,
		Member:    s.Member,
		Role:      string(s.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.Member,
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify checks a token and returns its session, which must still exist.
func (m *Manager) Verify(ctx context.Context, token string) (*Session, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	return m.Current(ctx, claims.SessionID)
}
