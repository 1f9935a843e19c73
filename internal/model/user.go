package model

import "time"

// Role represents a user's access tier.
type Role string

const (
	RoleGuest      Role = "guest"
	RoleRegistered Role = "registered"
	RolePremium    Role = "premium"
	RoleAdmin      Role = "admin"
)

// Valid reports whether the role is one of the known tiers.
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleRegistered, RolePremium, RoleAdmin:
		return true
	}
	return false
}

// User represents an account. Guest accounts are created on demand and carry
// no email or password.
type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email,omitempty"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginRequest is the payload for authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginResponse is returned after successful login or registration.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
