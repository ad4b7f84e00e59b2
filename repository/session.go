package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/linlinbupt123-crypto/wallet_bot/entity"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
)

// SessionRepository stores one UserSession per chat user. Implementations
// return copies so callers never share mutable state through the store.
type SessionRepository interface {
	Get(ctx context.Context, userID string) (*entity.UserSession, error)
	// Create fails with ErrSessionExists instead of overwriting, which keeps
	// key material from being generated twice for a user.
	Create(ctx context.Context, s *entity.UserSession) error
	Update(ctx context.Context, s *entity.UserSession) error
	// ClearWithdrawal resets the withdrawal to Idle and keeps key material.
	ClearWithdrawal(ctx context.Context, userID string) error
}

// MemorySessionRepo keeps sessions in process memory; a restart loses them.
type MemorySessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*entity.UserSession
	now      func() time.Time
}

func NewMemorySessionRepo() *MemorySessionRepo {
	return &MemorySessionRepo{
		sessions: make(map[string]*entity.UserSession),
		now:      time.Now,
	}
}

func (r *MemorySessionRepo) Get(_ context.Context, userID string) (*entity.UserSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[userID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (r *MemorySessionRepo) Create(_ context.Context, s *entity.UserSession) error {
	if s == nil || s.UserID == "" {
		return errors.New("session without user id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.UserID]; ok {
		return ErrSessionExists
	}
	c := s.Clone()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.now()
	}
	if c.Withdrawal == nil {
		c.Withdrawal = entity.Idle{}
	}
	r.sessions[s.UserID] = c
	return nil
}

func (r *MemorySessionRepo) Update(_ context.Context, s *entity.UserSession) error {
	if s == nil {
		return errors.New("nil session")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.sessions[s.UserID]
	if !ok {
		return ErrSessionNotFound
	}
	c := s.Clone()
	// address and key are write-once
	c.Address = cur.Address
	c.PrivateKey = cur.PrivateKey
	c.PublicKey = cur.PublicKey
	c.CreatedAt = cur.CreatedAt
	r.sessions[s.UserID] = c
	return nil
}

func (r *MemorySessionRepo) ClearWithdrawal(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.sessions[userID]
	if !ok {
		return ErrSessionNotFound
	}
	c := cur.Clone()
	c.Withdrawal = entity.Idle{}
	r.sessions[userID] = c
	return nil
}

// Len reports how many sessions are held.
func (r *MemorySessionRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
