package persistent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/inkpot/inkpot"
	"github.com/uptrace/bun"
)

type Post struct {
	bun.BaseModel `bun:"table:posts,alias:post"`

	Id        int64     `bun:",pk,autoincrement"`
	Title     string    `bun:",notnull"`
	Content   string    `bun:",notnull"`
	CreatedAt time.Time `bun:",notnull"`
	AuthorId  int64     `bun:",notnull"`
	Author    *User     `bun:"rel:belongs-to,join:author_id=id"`
}

func (p Post) ToDomain() inkpot.Post {
	post := inkpot.Post{
		Id:        inkpot.PostId(p.Id),
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
		AuthorId:  inkpot.UserId(p.AuthorId),
	}
	if p.Author != nil {
		post.Author = p.Author.ToDomain()
	}
	return post
}

type PostStore struct {
	DB *bun.DB
}

var _ inkpot.PostStore = (*PostStore)(nil)

func (s *PostStore) Create(ctx context.Context, post inkpot.Post) (inkpot.Post, error) {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	model := &Post{
		Title:     post.Title,
		Content:   post.Content,
		CreatedAt: post.CreatedAt,
		AuthorId:  int64(post.AuthorId),
	}
	_, err := s.DB.NewInsert().Model(model).Exec(ctx)
	if err != nil {
		return inkpot.Post{}, fmt.Errorf("insert post: %w", err)
	}
	return s.ById(ctx, inkpot.PostId(model.Id))
}

func (s *PostStore) ById(ctx context.Context, postId inkpot.PostId) (inkpot.Post, error) {
	post := new(Post)
	err := s.DB.NewSelect().
		Model(post).
		Relation("Author").
		Relation("Author.Profile").
		Where("post.id = ?", int64(postId)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return inkpot.Post{}, inkpot.ErrPostNotFound
		}
		return inkpot.Post{}, fmt.Errorf("select post: %w", err)
	}
	return post.ToDomain(), nil
}

func (s *PostStore) Update(ctx context.Context, post inkpot.Post) error {
	res, err := s.DB.NewUpdate().
		Model((*Post)(nil)).
		Set("title = ?", post.Title).
		Set("content = ?", post.Content).
		Set("author_id = ?", int64(post.AuthorId)).
		Where("id = ?", int64(post.Id)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return expectAffected(res, inkpot.ErrPostNotFound)
}

func (s *PostStore) Delete(ctx context.Context, postId inkpot.PostId) error {
	res, err := s.DB.NewDelete().
		Model((*Post)(nil)).
		Where("id = ?", int64(postId)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return expectAffected(res, inkpot.ErrPostNotFound)
}

func (s *PostStore) List(ctx context.Context, page int) ([]inkpot.Post, inkpot.Page, error) {
	return s.list(ctx, page, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q
	})
}

func (s *PostStore) ListByAuthor(ctx context.Context, authorId inkpot.UserId, page int) ([]inkpot.Post, inkpot.Page, error) {
	return s.list(ctx, page, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("post.author_id = ?", int64(authorId))
	})
}

func (s *PostStore) list(ctx context.Context, number int,
	filter func(*bun.SelectQuery) *bun.SelectQuery) ([]inkpot.Post, inkpot.Page, error) {
	total, err := filter(s.DB.NewSelect().Model((*Post)(nil))).Count(ctx)
	if err != nil {
		return nil, inkpot.Page{}, fmt.Errorf("count posts: %w", err)
	}
	page, err := inkpot.NewPage(number, total)
	if err != nil {
		return nil, inkpot.Page{}, err
	}

	var posts []Post
	err = filter(s.DB.NewSelect().Model(&posts)).
		Relation("Author").
		Relation("Author.Profile").
		OrderExpr("post.created_at DESC, post.id DESC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Scan(ctx)
	if err != nil {
		return nil, inkpot.Page{}, fmt.Errorf("select posts: %w", err)
	}

	mp := make([]inkpot.Post, len(posts))
	for i, p := range posts {
		mp[i] = p.ToDomain()
	}
	return mp, page, nil
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
