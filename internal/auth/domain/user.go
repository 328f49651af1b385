package domain

import (
	"strings"
	"time"

	"github.com/dmehra2102/Pharmacy-Management-System/pkg/apperr"
)

var (
	ErrUserNotFound       = apperr.NotFound("user_not_found", "user not found")
	ErrDuplicateEmail     = apperr.Conflict("email_taken", "email is already registered")
	ErrInvalidCredentials = apperr.Unauthorized("invalid_credentials", "invalid email or password")
	ErrInvalidToken       = apperr.Unauthorized("invalid_token", "missing or invalid bearer token")
	ErrAdminExists        = apperr.Conflict("admin_exists", "an administrator already exists")
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func NewUser(id, name, email, passwordHash string, role Role) User {
	now := time.Now().UTC()
	return User{
		ID:           id,
		Name:         name,
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
