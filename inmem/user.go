package inmem

import (
	"context"
	"fmt"
	"time"

	"github.com/inkpot/inkpot"
)

type UserStore struct {
	DB *DB
}

var _ inkpot.UserStore = (*UserStore)(nil)

func NewUserStore(db *DB) *UserStore {
	return &UserStore{DB: db}
}

func (s *UserStore) Register(ctx context.Context, nu inkpot.NewUser) (inkpot.User, error) {
	s.DB.mutex.Lock()
	defer s.DB.mutex.Unlock()

	for _, u := range s.DB.users {
		if u.Username == nu.Username {
			return inkpot.User{}, inkpot.ErrUsernameTaken
		}
	}

	s.DB.lastUserId++
	uid := inkpot.UserId(s.DB.lastUserId)
	user := inkpot.User{
		Id:           uid,
		CreatedAt:    time.Now().UTC(),
		Username:     nu.Username,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
	}
	profile, err := s.insertProfile(uid)
	if err != nil {
		return inkpot.User{}, err
	}
	s.DB.users[uid] = user
	user.Profile = profile
	return user, nil
}

// insertProfile mirrors the unique constraint on profiles.user_id.
func (s *UserStore) insertProfile(userId inkpot.UserId) (inkpot.Profile, error) {
	if _, ok := s.DB.profiles[userId]; ok {
		return inkpot.Profile{}, fmt.Errorf("insert profile: duplicate profile for user %d", userId)
	}
	s.DB.lastProfileId++
	profile := inkpot.Profile{
		Id:     s.DB.lastProfileId,
		UserId: userId,
		Image:  inkpot.DefaultProfileImage,
	}
	s.DB.profiles[userId] = profile
	return profile, nil
}

func (s *UserStore) ById(ctx context.Context, userId inkpot.UserId) (inkpot.User, error) {
	s.DB.mutex.RLock()
	defer s.DB.mutex.RUnlock()

	u, ok := s.DB.userWithProfile(userId)
	if !ok {
		return u, inkpot.ErrUserNotFound
	}
	return u, nil
}

func (s *UserStore) ByUsername(ctx context.Context, username string) (inkpot.User, error) {
	s.DB.mutex.RLock()
	defer s.DB.mutex.RUnlock()

	for id, u := range s.DB.users {
		if u.Username == username {
			u, _ = s.DB.userWithProfile(id)
			return u, nil
		}
	}
	return inkpot.User{}, inkpot.ErrUserNotFound
}

func (s *UserStore) Save(ctx context.Context, user inkpot.User) error {
	s.DB.mutex.Lock()
	defer s.DB.mutex.Unlock()

	stored, ok := s.DB.users[user.Id]
	if !ok {
		return inkpot.ErrUserNotFound
	}
	for id, u := range s.DB.users {
		if id != user.Id && u.Username == user.Username {
			return inkpot.ErrUsernameTaken
		}
	}
	profile, ok := s.DB.profiles[user.Id]
	if !ok {
		return inkpot.ErrProfileMissing
	}

	stored.Username = user.Username
	stored.Email = user.Email
	s.DB.users[user.Id] = stored

	profile.Image = user.Profile.Image
	s.DB.profiles[user.Id] = profile
	return nil
}

func (s *UserStore) Delete(ctx context.Context, userId inkpot.UserId) error {
	s.DB.mutex.Lock()
	defer s.DB.mutex.Unlock()

	if _, ok := s.DB.users[userId]; !ok {
		return inkpot.ErrUserNotFound
	}
	delete(s.DB.users, userId)
	delete(s.DB.profiles, userId)
	for id, p := range s.DB.posts {
		if p.AuthorId == userId {
			delete(s.DB.posts, id)
		}
	}
	return nil
}

// RemoveProfile drops the profile row only, leaving the user dangling.
func (s *UserStore) RemoveProfile(userId inkpot.UserId) {
	s.DB.mutex.Lock()
	defer s.DB.mutex.Unlock()
	delete(s.DB.profiles, userId)
}

// CreateProfile inserts a default profile for an existing user, failing like
// the unique constraint would when one already exists.
func (s *UserStore) CreateProfile(userId inkpot.UserId) (inkpot.Profile, error) {
	s.DB.mutex.Lock()
	defer s.DB.mutex.Unlock()
	return s.insertProfile(userId)
}
