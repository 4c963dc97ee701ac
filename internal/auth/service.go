package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// GetUser fetches a user by id.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// RegisterSession persists the session metadata and marks the user
// connected.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if err := s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua); err != nil {
		return err
	}
	return s.repo.SetConnected(ctx, userID, true)
}

// TouchSession refreshes the liveness timestamp consumed by the timeout
// sweep.
func (s *Service) TouchSession(ctx context.Context, id string) error {
	return s.repo.TouchSession(ctx, id)
}

// RemoveSession deletes a session record and, when it was the user's last
// one, marks the user disconnected.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	userID, err := s.repo.DeleteSession(ctx, id)
	if err != nil {
		return err
	}
	if userID == 0 {
		return nil
	}
	live, err := s.repo.CountLiveSessions(ctx, userID)
	if err != nil {
		return err
	}
	if live == 0 {
		return s.repo.SetConnected(ctx, userID, false)
	}
	return nil
}

// SweepStaleSessions removes sessions idle for longer than timeout and
// marks their users disconnected. It returns how many sessions were
// removed.
func (s *Service) SweepStaleSessions(ctx context.Context, timeout time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-timeout)
	return s.repo.DeleteStaleSessions(ctx, cutoff)
}
