package mock

import (
	"context"

	"github.com/inkpot/inkpot"
)

type UserStore struct {
	RegisterFn func(ctx context.Context, u inkpot.NewUser) (inkpot.User, error)

	ByIdFn func(ctx context.Context, userId inkpot.UserId) (inkpot.User, error)

	ByUsernameFn func(ctx context.Context, username string) (inkpot.User, error)

	SaveFn func(ctx context.Context, user inkpot.User) error

	DeleteFn func(ctx context.Context, userId inkpot.UserId) error
}

func (s UserStore) Register(ctx context.Context, u inkpot.NewUser) (inkpot.User, error) {
	return s.RegisterFn(ctx, u)
}

func (s UserStore) ById(ctx context.Context, userId inkpot.UserId) (inkpot.User, error) {
	return s.ByIdFn(ctx, userId)
}

func (s UserStore) ByUsername(ctx context.Context, username string) (inkpot.User, error) {
	return s.ByUsernameFn(ctx, username)
}

func (s UserStore) Save(ctx context.Context, user inkpot.User) error {
	return s.SaveFn(ctx, user)
}

func (s UserStore) Delete(ctx context.Context, userId inkpot.UserId) error {
	return s.DeleteFn(ctx, userId)
}
