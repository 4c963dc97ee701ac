package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type fakeAuthRepo struct {
	users     map[string]*User
	sessions  map[string]int64
	connected map[int64]bool
	touched   []string
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{
		users:     map[string]*User{},
		sessions:  map[string]int64{},
		connected: map[int64]bool{},
	}
}

func (f *fakeAuthRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (f *fakeAuthRepo) FindByID(_ context.Context, id int64) (*User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeAuthRepo) CreateSession(_ context.Context, id string, userID int64, _ time.Time, _, _ string) error {
	f.sessions[id] = userID
	return nil
}

func (f *fakeAuthRepo) TouchSession(_ context.Context, id string) error {
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeAuthRepo) DeleteSession(_ context.Context, id string) (int64, error) {
	userID := f.sessions[id]
	delete(f.sessions, id)
	return userID, nil
}

func (f *fakeAuthRepo) DeleteStaleSessions(_ context.Context, _ time.Time) (int64, error) {
	n := int64(len(f.sessions))
	f.sessions = map[string]int64{}
	return n, nil
}

func (f *fakeAuthRepo) CountLiveSessions(_ context.Context, userID int64) (int64, error) {
	var count int64
	for _, id := range f.sessions {
		if id == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAuthRepo) SetConnected(_ context.Context, userID int64, connected bool) error {
	f.connected[userID] = connected
	return nil
}

func newAuthService(t *testing.T) (*Service, *fakeAuthRepo) {
	t.Helper()
	repo := newFakeAuthRepo()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.users["ana@example.com"] = &User{
		ID: 1, Email: "ana@example.com", Name: "Ana", Role: "admin",
		PasswordHash: string(hash), IsActive: true,
	}
	repo.users["inactive@example.com"] = &User{
		ID: 2, Email: "inactive@example.com", PasswordHash: string(hash), IsActive: false,
	}
	return NewService(repo), repo
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newAuthService(t)

	user, err := svc.Authenticate(context.Background(), "ana@example.com", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, "admin", user.Role)

	_, err = svc.Authenticate(context.Background(), "ana@example.com", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "missing@example.com", "correct-horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "inactive@example.com", "correct-horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSessionLifecycleTracksConnected(t *testing.T) {
	svc, repo := newAuthService(t)

	require.NoError(t, svc.RegisterSession(context.Background(), "sess-1", 1, time.Now().Add(time.Hour), "127.0.0.1", "test"))
	require.True(t, repo.connected[1])

	require.NoError(t, svc.RegisterSession(context.Background(), "sess-2", 1, time.Now().Add(time.Hour), "127.0.0.1", "test"))

	// Dropping one of two sessions keeps the user connected.
	require.NoError(t, svc.RemoveSession(context.Background(), "sess-1"))
	require.True(t, repo.connected[1])

	require.NoError(t, svc.RemoveSession(context.Background(), "sess-2"))
	require.False(t, repo.connected[1])
}

func TestSweepStaleSessions(t *testing.T) {
	svc, repo := newAuthService(t)

	require.NoError(t, svc.RegisterSession(context.Background(), "sess-1", 1, time.Now().Add(time.Hour), "", ""))
	swept, err := svc.SweepStaleSessions(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, swept)
	require.Empty(t, repo.sessions)
}
