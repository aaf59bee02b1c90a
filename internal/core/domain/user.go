package domain

import "time"

// User models an account that owns tasks.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Owner is the public summary of a user embedded in task responses.
type Owner struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Claims is the identity carried by a verified session token.
type Claims struct {
	UserID    int64
	Email     string
	Name      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
