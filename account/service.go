package account

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/inkpot/inkpot"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Service owns identity creation and account edits. It is the single place
// where a profile gets its image normalized before being persisted.
type Service struct {
	Users      inkpot.UserStore
	Images     inkpot.ImageStore
	Activities inkpot.ActivityStore

	// HashCost defaults to bcrypt.DefaultCost.
	HashCost int
}

type Registration struct {
	Username string
	Email    inkpot.Email
	Password string
}

type AccountUpdate struct {
	Username string
	Email    inkpot.Email
	// Image is the new upload, nil keeps the current one.
	Image io.Reader
}

func (s *Service) hashCost() int {
	if s.HashCost == 0 {
		return bcrypt.DefaultCost
	}
	return s.HashCost
}

func (s *Service) Register(ctx context.Context, r Registration) (inkpot.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.hashCost())
	if err != nil {
		return inkpot.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.Users.Register(ctx, inkpot.NewUser{
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return inkpot.User{}, err
	}
	if err := s.Images.Normalize(ctx, user.Profile.Image); err != nil {
		return inkpot.User{}, fmt.Errorf("normalize profile image: %w", err)
	}

	err = s.Activities.AddLog(ctx, user.Id, inkpot.Activity{Name: inkpot.ActivityRegistered, Data: map[string]interface{}{
		"username": user.Username,
	}})
	if err != nil {
		return inkpot.User{}, fmt.Errorf("add registered activity log: %w", err)
	}
	logrus.
		WithField("user_id", user.Id).
		WithField("username", user.Username).
		Infoln("Registered user.")
	return user, nil
}

// Authenticate returns ErrInvalidCredentials for unknown usernames and
// wrong passwords alike.
func (s *Service) Authenticate(ctx context.Context, username string, password string) (inkpot.User, error) {
	if username == "" || password == "" {
		return inkpot.User{}, inkpot.ErrInvalidCredentials
	}
	user, err := s.Users.ByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, inkpot.ErrUserNotFound) {
			return inkpot.User{}, inkpot.ErrInvalidCredentials
		}
		return inkpot.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return inkpot.User{}, inkpot.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) UpdateAccount(ctx context.Context, actor inkpot.User, upd AccountUpdate) (inkpot.User, error) {
	if upd.Username != actor.Username {
		existing, err := s.Users.ByUsername(ctx, upd.Username)
		switch {
		case err == nil && existing.Id != actor.Id:
			return inkpot.User{}, inkpot.ErrUsernameTaken
		case err != nil && !errors.Is(err, inkpot.ErrUserNotFound):
			return inkpot.User{}, fmt.Errorf("lookup username: %w", err)
		}
	}

	user := actor
	user.Username = upd.Username
	user.Email = upd.Email
	var uploaded string
	if upd.Image != nil {
		name, err := s.Images.Save(ctx, inkpot.ProfilePicsNamespace, upd.Image)
		if err != nil {
			return inkpot.User{}, err
		}
		uploaded = name
		user.Profile.Image = name
	}
	if err := s.Images.Normalize(ctx, user.Profile.Image); err != nil {
		s.discardUpload(ctx, uploaded)
		return inkpot.User{}, fmt.Errorf("normalize profile image: %w", err)
	}
	if err := s.Users.Save(ctx, user); err != nil {
		s.discardUpload(ctx, uploaded)
		return inkpot.User{}, err
	}

	err := s.Activities.AddLog(ctx, user.Id, inkpot.Activity{Name: inkpot.ActivityAccountUpdated, Data: map[string]interface{}{
		"username": user.Username,
		"email":    string(user.Email),
		"image":    user.Profile.Image,
	}})
	if err != nil {
		return inkpot.User{}, fmt.Errorf("add account_updated activity log: %w", err)
	}
	return user, nil
}

// discardUpload removes an image stored for an update that did not go through.
func (s *Service) discardUpload(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := s.Images.Remove(ctx, name); err != nil {
		logrus.WithError(err).WithField("name", name).Warningln("Could not remove discarded upload.")
	}
}

// DeleteUser removes the identity, its profile and its posts.
func (s *Service) DeleteUser(ctx context.Context, username string) error {
	user, err := s.Users.ByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.Users.Delete(ctx, user.Id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	logrus.
		WithField("user_id", user.Id).
		WithField("username", user.Username).
		Infoln("Deleted user.")
	return nil
}
