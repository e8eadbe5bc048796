package mock

import (
	"context"

	"github.com/inkpot/inkpot"
)

type PostStore struct {
	CreateFn       func(ctx context.Context, post inkpot.Post) (inkpot.Post, error)
	ByIdFn         func(ctx context.Context, postId inkpot.PostId) (inkpot.Post, error)
	UpdateFn       func(ctx context.Context, post inkpot.Post) error
	DeleteFn       func(ctx context.Context, postId inkpot.PostId) error
	ListFn         func(ctx context.Context, page int) ([]inkpot.Post, inkpot.Page, error)
	ListByAuthorFn func(ctx context.Context, authorId inkpot.UserId, page int) ([]inkpot.Post, inkpot.Page, error)
}

func (s PostStore) Create(ctx context.Context, post inkpot.Post) (inkpot.Post, error) {
	return s.CreateFn(ctx, post)
}

func (s PostStore) ById(ctx context.Context, postId inkpot.PostId) (inkpot.Post, error) {
	return s.ByIdFn(ctx, postId)
}

func (s PostStore) Update(ctx context.Context, post inkpot.Post) error {
	return s.UpdateFn(ctx, post)
}

func (s PostStore) Delete(ctx context.Context, postId inkpot.PostId) error {
	return s.DeleteFn(ctx, postId)
}

func (s PostStore) List(ctx context.Context, page int) ([]inkpot.Post, inkpot.Page, error) {
	return s.ListFn(ctx, page)
}

func (s PostStore) ListByAuthor(ctx context.Context, authorId inkpot.UserId, page int) ([]inkpot.Post, inkpot.Page, error) {
	return s.ListByAuthorFn(ctx, authorId, page)
}
