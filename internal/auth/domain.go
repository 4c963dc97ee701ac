package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	Role         string
	PasswordHash string
	IsActive     bool
	Connected    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
