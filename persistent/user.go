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

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	Id           int64     `bun:",pk,autoincrement"`
	CreatedAt    time.Time `bun:",notnull"`
	Username     string    `bun:",notnull,unique"`
	Email        string    `bun:",notnull"`
	PasswordHash string    `bun:",notnull"`
	Profile      *Profile  `bun:"rel:has-one,join:id=user_id"`
}

func (u User) ToDomain() inkpot.User {
	user := inkpot.User{
		Id:           inkpot.UserId(u.Id),
		CreatedAt:    u.CreatedAt,
		Username:     u.Username,
		Email:        inkpot.Email(u.Email),
		PasswordHash: u.PasswordHash,
	}
	if u.Profile != nil {
		user.Profile = u.Profile.ToDomain()
	}
	return user
}

type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:profile"`

	Id     int64  `bun:",pk,autoincrement"`
	UserId int64  `bun:",notnull,unique"`
	Image  string `bun:",notnull"`
}

func (p Profile) ToDomain() inkpot.Profile {
	return inkpot.Profile{
		Id:     p.Id,
		UserId: inkpot.UserId(p.UserId),
		Image:  p.Image,
	}
}

type UserStore struct {
	DB *bun.DB
}

var _ inkpot.UserStore = (*UserStore)(nil)

func (s *UserStore) Register(ctx context.Context, nu inkpot.NewUser) (inkpot.User, error) {
	user := &User{
		CreatedAt:    time.Now().UTC(),
		Username:     nu.Username,
		Email:        string(nu.Email),
		PasswordHash: nu.PasswordHash,
	}

	err := s.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		taken, err := tx.NewSelect().
			Model((*User)(nil)).
			Where("u.username = ?", nu.Username).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("count username: %w", err)
		}
		if taken > 0 {
			return inkpot.ErrUsernameTaken
		}

		_, err = tx.NewInsert().Model(user).Exec(ctx)
		if err != nil {
			if isUniqueViolation(err) {
				return inkpot.ErrUsernameTaken
			}
			return fmt.Errorf("insert user: %w", err)
		}

		// The profile is created exactly once, with the identity. A second
		// insert for the same user is a constraint violation and aborts the
		// whole registration.
		profile := &Profile{
			UserId: user.Id,
			Image:  inkpot.DefaultProfileImage,
		}
		_, err = tx.NewInsert().Model(profile).Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}
		user.Profile = profile
		return nil
	})
	if err != nil {
		return inkpot.User{}, err
	}
	return user.ToDomain(), nil
}

func (s *UserStore) ById(ctx context.Context, userId inkpot.UserId) (inkpot.User, error) {
	return s.selectOne(ctx, "u.id = ?", int64(userId))
}

func (s *UserStore) ByUsername(ctx context.Context, username string) (inkpot.User, error) {
	return s.selectOne(ctx, "u.username = ?", username)
}

func (s *UserStore) selectOne(ctx context.Context, query string, arg interface{}) (inkpot.User, error) {
	user := new(User)
	err := s.DB.NewSelect().
		Model(user).
		Relation("Profile").
		Where(query, arg).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return inkpot.User{}, inkpot.ErrUserNotFound
		}
		return inkpot.User{}, fmt.Errorf("select user: %w", err)
	}
	return user.ToDomain(), nil
}

func (s *UserStore) Save(ctx context.Context, user inkpot.User) error {
	return s.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		taken, err := tx.NewSelect().
			Model((*User)(nil)).
			Where("u.username = ?", user.Username).
			Where("u.id != ?", int64(user.Id)).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("count username: %w", err)
		}
		if taken > 0 {
			return inkpot.ErrUsernameTaken
		}

		res, err := tx.NewUpdate().
			Model((*User)(nil)).
			Set("username = ?", user.Username).
			Set("email = ?", string(user.Email)).
			Where("id = ?", int64(user.Id)).
			Exec(ctx)
		if err != nil {
			if isUniqueViolation(err) {
				return inkpot.ErrUsernameTaken
			}
			return fmt.Errorf("update user: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("user rows affected: %w", err)
		} else if n == 0 {
			return inkpot.ErrUserNotFound
		}

		res, err = tx.NewUpdate().
			Model((*Profile)(nil)).
			Set("image = ?", user.Profile.Image).
			Where("user_id = ?", int64(user.Id)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("profile rows affected: %w", err)
		} else if n == 0 {
			return inkpot.ErrProfileMissing
		}
		return nil
	})
}

func (s *UserStore) Delete(ctx context.Context, userId inkpot.UserId) error {
	res, err := s.DB.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", int64(userId)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return inkpot.ErrUserNotFound
	}
	return nil
}
