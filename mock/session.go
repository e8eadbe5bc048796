package mock

import (
	"context"

	"github.com/inkpot/inkpot"
)

type SessionStore struct {
	RegisterNewFn           func(ctx context.Context, userId inkpot.UserId, ip string, userAgent string) (inkpot.Session, error)
	ActiveSessionsFn        func(userId inkpot.UserId) ([]inkpot.Session, error)
	AcquireAndRefreshFn     func(ctx context.Context, token string, ip string, userAgent string) (inkpot.Session, error)
	InvalidateByAuthTokenFn func(authToken string) error
	InvalidateAllExceptFn   func(keepToken string) error
}

func (s SessionStore) RegisterNew(ctx context.Context, userId inkpot.UserId, ip string, userAgent string) (inkpot.Session, error) {
	return s.RegisterNewFn(ctx, userId, ip, userAgent)
}

func (s SessionStore) ActiveSessions(userId inkpot.UserId) ([]inkpot.Session, error) {
	return s.ActiveSessionsFn(userId)
}

func (s SessionStore) AcquireAndRefresh(ctx context.Context, token string, ip string, userAgent string) (inkpot.Session, error) {
	return s.AcquireAndRefreshFn(ctx, token, ip, userAgent)
}

func (s SessionStore) InvalidateByAuthToken(authToken string) error {
	return s.InvalidateByAuthTokenFn(authToken)
}

func (s SessionStore) InvalidateAllExcept(keepToken string) error {
	return s.InvalidateAllExceptFn(keepToken)
}
