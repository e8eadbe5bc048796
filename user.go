package inkpot

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type UserId int64

type Email string

type User struct {
	Id           UserId
	CreatedAt    time.Time
	Username     string
	Email        Email
	PasswordHash string
	Profile      Profile
}

// NewUser is everything registration needs to create an identity.
type NewUser struct {
	Username     string
	Email        Email
	PasswordHash string
}

type UserStore interface {
	// Register persists a new identity together with its profile in a single
	// transaction. The returned user carries the created profile.
	Register(ctx context.Context, u NewUser) (User, error)

	ById(ctx context.Context, userId UserId) (User, error)

	ByUsername(ctx context.Context, username string) (User, error)

	// Save updates username and email and then persists user.Profile.
	// Fails with ErrProfileMissing when the identity has no profile row.
	Save(ctx context.Context, user User) error

	// Delete removes the identity. Profile and posts go with it.
	Delete(ctx context.Context, userId UserId) error
}
