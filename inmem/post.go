package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/inkpot/inkpot"
)

type PostStore struct {
	DB *DB
}

var _ inkpot.PostStore = (*PostStore)(nil)

func NewPostStore(db *DB) *PostStore {
	return &PostStore{DB: db}
}

func (s *PostStore) Create(ctx context.Context, post inkpot.Post) (inkpot.Post, error) {
	s.DB.mutex.Lock()
	defer s.DB.mutex.Unlock()

	if _, ok := s.DB.users[post.AuthorId]; !ok {
		return inkpot.Post{}, inkpot.ErrUserNotFound
	}
	s.DB.lastPostId++
	post.Id = inkpot.PostId(s.DB.lastPostId)
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	post.Author = inkpot.User{}
	s.DB.posts[post.Id] = post

	post.Author, _ = s.DB.userWithProfile(post.AuthorId)
	return post, nil
}

func (s *PostStore) ById(ctx context.Context, postId inkpot.PostId) (inkpot.Post, error) {
	s.DB.mutex.RLock()
	defer s.DB.mutex.RUnlock()

	post, ok := s.DB.posts[postId]
	if !ok {
		return inkpot.Post{}, inkpot.ErrPostNotFound
	}
	post.Author, _ = s.DB.userWithProfile(post.AuthorId)
	return post, nil
}

func (s *PostStore) Update(ctx context.Context, post inkpot.Post) error {
	s.DB.mutex.Lock()
	defer s.DB.mutex.Unlock()

	stored, ok := s.DB.posts[post.Id]
	if !ok {
		return inkpot.ErrPostNotFound
	}
	stored.Title = post.Title
	stored.Content = post.Content
	stored.AuthorId = post.AuthorId
	s.DB.posts[post.Id] = stored
	return nil
}

func (s *PostStore) Delete(ctx context.Context, postId inkpot.PostId) error {
	s.DB.mutex.Lock()
	defer s.DB.mutex.Unlock()

	if _, ok := s.DB.posts[postId]; !ok {
		return inkpot.ErrPostNotFound
	}
	delete(s.DB.posts, postId)
	return nil
}

func (s *PostStore) List(ctx context.Context, page int) ([]inkpot.Post, inkpot.Page, error) {
	return s.list(page, func(inkpot.Post) bool { return true })
}

func (s *PostStore) ListByAuthor(ctx context.Context, authorId inkpot.UserId, page int) ([]inkpot.Post, inkpot.Page, error) {
	return s.list(page, func(p inkpot.Post) bool { return p.AuthorId == authorId })
}

func (s *PostStore) list(number int, filter func(inkpot.Post) bool) ([]inkpot.Post, inkpot.Page, error) {
	s.DB.mutex.RLock()
	defer s.DB.mutex.RUnlock()

	matching := make([]inkpot.Post, 0, len(s.DB.posts))
	for _, p := range s.DB.posts {
		if filter(p) {
			matching = append(matching, p)
		}
	}
	page, err := inkpot.NewPage(number, len(matching))
	if err != nil {
		return nil, inkpot.Page{}, err
	}

	sort.Slice(matching, func(i, j int) bool {
		if !matching[i].CreatedAt.Equal(matching[j].CreatedAt) {
			return matching[i].CreatedAt.After(matching[j].CreatedAt)
		}
		return matching[i].Id > matching[j].Id
	})

	start := page.Offset()
	end := start + page.Limit()
	if end > len(matching) {
		end = len(matching)
	}
	posts := make([]inkpot.Post, 0, end-start)
	for _, p := range matching[start:end] {
		p.Author, _ = s.DB.userWithProfile(p.AuthorId)
		posts = append(posts, p)
	}
	return posts, page, nil
}
