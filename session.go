package inkpot

import (
	"context"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

type Session struct {
	Id             string
	UserId         UserId
	Token          string
	Ip             string
	UserAgent      string
	LastAccessedAt time.Time
	ExpiresAt      time.Time
}

type SessionStore interface {
	RegisterNew(ctx context.Context, userId UserId, ip string, userAgent string) (Session, error)

	// ActiveSessions lists live sessions of the user.
	ActiveSessions(userId UserId) ([]Session, error)

	AcquireAndRefresh(ctx context.Context, token string, ip string, userAgent string) (Session, error)

	InvalidateByAuthToken(authToken string) error

	// InvalidateAllExcept drops every other session of the token's owner.
	InvalidateAllExcept(keepToken string) error
}
