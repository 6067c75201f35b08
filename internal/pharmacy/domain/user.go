package domain

import "time"

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string // argon2 encoded
	Role         Role
	MFAEnabled   bool // flips exactly once, on first successful enrollment
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
