// Package user stores accounts and serves the profile endpoints.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/irsalhamdi/e-learning/core/claims"
	"github.com/irsalhamdi/e-learning/core/entitlement"
	"github.com/irsalhamdi/e-learning/database"
	"github.com/irsalhamdi/e-learning/validate"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound        = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrWrongPassword   = errors.New("wrong password")
	ErrNoPasswordLogin = errors.New("account has no password")
	ErrVersionConflict = errors.New("user changed concurrently")
)

// New builds a user with a bcrypt hash of the password. An empty password
// yields an account that can only log in through an oauth provider.
func New(name, email, password string, now time.Time) (User, error) {
	u := User{
		ID:        validate.GenerateID(),
		Name:      name,
		Email:     strings.ToLower(email),
		Role:      claims.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, fmt.Errorf("hashing password: %w", err)
		}
		u.PasswordHash = string(hash)
	}
	return u, nil
}

// CheckPassword compares password against the stored hash.
func (u User) CheckPassword(password string) error {
	if u.PasswordHash == "" {
		return ErrNoPasswordLogin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

func Create(ctx context.Context, db sqlx.ExtContext, u User) error {
	const q = `
	INSERT INTO users
		(user_id, name, email, password_hash, avatar_url, role, created_at, updated_at, version)
	VALUES
		(:user_id, :name, :email, :password_hash, :avatar_url, :role, :created_at, :updated_at, :version)`

	if _, err := database.NamedExecContext(ctx, db, q, u); err != nil {
		if errors.Is(err, database.ErrDBDuplicatedEntry) {
			return ErrEmailTaken
		}
		return fmt.Errorf("inserting user[%s]: %w", u.Email, err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (User, error) {
	if err := validate.CheckID(id); err != nil {
		return User{}, ErrNotFound
	}

	in := struct {
		ID string `db:"user_id"`
	}{id}

	const q = `
	SELECT
		user_id, name, email, password_hash, avatar_url, role, created_at, updated_at, version
	FROM users
	WHERE user_id = :user_id`

	var u User
	if err := database.NamedQueryStruct(ctx, db, q, in, &u); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("selecting user[%s]: %w", id, err)
	}
	return u, nil
}

func FetchByEmail(ctx context.Context, db sqlx.ExtContext, email string) (User, error) {
	in := struct {
		Email string `db:"email"`
	}{strings.ToLower(email)}

	const q = `
	SELECT
		user_id, name, email, password_hash, avatar_url, role, created_at, updated_at, version
	FROM users
	WHERE email = :email`

	var u User
	if err := database.NamedQueryStruct(ctx, db, q, in, &u); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("selecting user by email: %w", err)
	}
	return u, nil
}

// Update writes the mutable fields of u. The row must still be at u.Version,
// which is incremented on success.
func Update(ctx context.Context, db sqlx.ExtContext, u *User) error {
	const q = `
	UPDATE users SET
		name = :name,
		avatar_url = :avatar_url,
		password_hash = :password_hash,
		updated_at = :updated_at,
		version = version + 1
	WHERE user_id = :user_id AND version = :version`

	res, err := database.NamedExecContext(ctx, db, q, u)
	if err != nil {
		return fmt.Errorf("updating user[%s]: %w", u.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update of user[%s]: %w", u.ID, err)
	}
	if n == 0 {
		return ErrVersionConflict
	}

	u.Version++
	return nil
}

// Courses returns the ids of the courses owned by the user, oldest purchase
// first.
func Courses(ctx context.Context, db sqlx.ExtContext, userID string) ([]string, error) {
	in := struct {
		UserID string `db:"user_id"`
	}{userID}

	const q = `
	SELECT course_id
	FROM user_courses
	WHERE user_id = :user_id
	ORDER BY created_at, course_id`

	var rows []struct {
		CourseID string `db:"course_id"`
	}
	if err := database.NamedQuerySlice(ctx, db, q, in, &rows); err != nil {
		return nil, fmt.Errorf("selecting courses of user[%s]: %w", userID, err)
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.CourseID)
	}
	return ids, nil
}

func FetchProfile(ctx context.Context, db sqlx.ExtContext, id string) (Profile, error) {
	u, err := Fetch(ctx, db, id)
	if err != nil {
		return Profile{}, err
	}

	courses, err := Courses(ctx, db, id)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: u, Courses: courses}, nil
}

func (p Profile) Snapshot() entitlement.Snapshot {
	return entitlement.Snapshot{
		ID:      p.ID,
		Name:    p.Name,
		Email:   p.Email,
		Avatar:  p.Avatar,
		Role:    p.Role,
		Courses: p.Courses,
	}
}

// SyncEntitlement rereads the user from the database and stores the result
// in the entitlement cache. It must only be called once the writes it should
// reflect are committed. When the refresh fails the cached entry is dropped
// so readers fall back to the database.
func SyncEntitlement(ctx context.Context, db sqlx.ExtContext, rdb redis.Cmdable, log logrus.FieldLogger, userID string) {
	p, err := FetchProfile(ctx, db, userID)
	if err == nil {
		err = entitlement.Refresh(ctx, rdb, p.Snapshot())
	}
	if err == nil {
		return
	}

	log = log.WithFields(logrus.Fields{"user_id": userID, "error": err})
	log.Warn("entitlement refresh failed")

	if err := entitlement.Invalidate(ctx, rdb, userID); err != nil {
		log.WithField("invalidate_error", err).Warn("entitlement invalidation failed")
	}
}
