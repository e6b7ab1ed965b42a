package auth

import "time"

// Account represents a login identity. Role data lives in the users module;
// authentication only needs the credential fields.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
