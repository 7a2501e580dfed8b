package domain

import (
	"context"
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

// UserStatus defines the possible statuses of a user account.
type UserStatus string

const (
	UserStatusActive UserStatus = "ACTIVE"
	UserStatusLocked UserStatus = "LOCKED"
)

// User is the identity this service issues tokens for. Identity management
// itself (registration, profiles, roles) is owned elsewhere; this service
// only needs the stable claims and the password hash for the login check.
type User struct {
	ID           string     `bson:"_id,omitempty"`
	Username     string     `bson:"username,unique"`
	Email        string     `bson:"email,unique"`
	GroupID      string     `bson:"group_id"` // Tenant/franchise group the user belongs to
	PasswordHash string     `bson:"password_hash"`
	Status       UserStatus `bson:"status"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

// UserRepository looks up users for login and refresh.
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
}
