package inkpot

import (
	"context"
	"errors"
	"time"
)

const (
	TitleMaxLength = 100
	PostsPerPage   = 5
)

var ErrPostNotFound = errors.New("post not found")

type PostId int64

type Post struct {
	Id        PostId
	Title     string
	Content   string
	CreatedAt time.Time
	AuthorId  UserId
	// Author is filled on reads.
	Author User
}

type PostStore interface {
	// Create stores the post. A zero CreatedAt defaults to now.
	Create(ctx context.Context, post Post) (Post, error)

	ById(ctx context.Context, postId PostId) (Post, error)

	Update(ctx context.Context, post Post) error

	Delete(ctx context.Context, postId PostId) error

	// List returns posts newest first.
	List(ctx context.Context, page int) ([]Post, Page, error)

	ListByAuthor(ctx context.Context, authorId UserId, page int) ([]Post, Page, error)
}
