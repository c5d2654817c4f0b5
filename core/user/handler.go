package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/e-learning/api/web"
	"github.com/irsalhamdi/e-learning/api/weberr"
	"github.com/irsalhamdi/e-learning/core/claims"
	"github.com/irsalhamdi/e-learning/core/entitlement"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type profileResponse struct {
	Success bool    `json:"success"`
	User    Profile `json:"user"`
}

// HandleMe answers from the entitlement cache and falls back to the database
// on a miss without repopulating the cache.
func HandleMe(db *sqlx.DB, rdb redis.Cmdable, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		snap, err := entitlement.Get(ctx, rdb, clm.UserID)
		switch {
		case err == nil:
			resp := struct {
				Success bool                 `json:"success"`
				User    entitlement.Snapshot `json:"user"`
			}{true, snap}
			return web.Respond(ctx, w, resp, http.StatusOK)
		case !errors.Is(err, entitlement.ErrMiss):
			log.WithFields(logrus.Fields{"user_id": clm.UserID, "error": err}).Warn("entitlement cache unavailable")
		}

		p, err := FetchProfile(ctx, db, clm.UserID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching profile: %w", err)
		}
		return web.Respond(ctx, w, profileResponse{true, p}, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")

		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}
		if !clm.CanAccess(id) {
			return weberr.Forbidden(fmt.Errorf("user[%s] reading user[%s]", clm.UserID, id))
		}

		p, err := FetchProfile(ctx, db, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching user[%s]: %w", id, err)
		}
		return web.Respond(ctx, w, profileResponse{true, p}, http.StatusOK)
	}
}

func HandleUpdateInfo(db *sqlx.DB, rdb redis.Cmdable, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in InfoUp
		if err := web.Decode(w, r, &in); err != nil {
			return err
		}

		return update(ctx, w, db, rdb, log, func(u *User) error {
			u.Name = in.Name
			return nil
		})
	}
}

func HandleUpdateAvatar(db *sqlx.DB, rdb redis.Cmdable, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in AvatarUp
		if err := web.Decode(w, r, &in); err != nil {
			return err
		}

		return update(ctx, w, db, rdb, log, func(u *User) error {
			u.Avatar = in.Avatar
			return nil
		})
	}
}

func HandleUpdatePassword(db *sqlx.DB, rdb redis.Cmdable, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in PasswordUp
		if err := web.Decode(w, r, &in); err != nil {
			return err
		}

		return update(ctx, w, db, rdb, log, func(u *User) error {
			if err := u.CheckPassword(in.OldPassword); err != nil {
				if errors.Is(err, ErrNoPasswordLogin) {
					return weberr.BadRequest(err, weberr.WithMessage("account signs in through a provider"))
				}
				return weberr.BadRequest(err, weberr.WithMessage("invalid old password"))
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hashing password: %w", err)
			}
			u.PasswordHash = string(hash)
			return nil
		})
	}
}

// update applies fn to the caller's account, saves it and refreshes the
// entitlement cache once the write is done.
func update(ctx context.Context, w http.ResponseWriter, db *sqlx.DB, rdb redis.Cmdable, log logrus.FieldLogger, fn func(*User) error) error {
	clm, err := claims.Get(ctx)
	if err != nil {
		return weberr.NotAuthorized(err)
	}

	u, err := Fetch(ctx, db, clm.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return weberr.NotFound(err)
		}
		return fmt.Errorf("fetching user[%s]: %w", clm.UserID, err)
	}

	if err := fn(&u); err != nil {
		return err
	}
	u.UpdatedAt = time.Now().UTC()

	if err := Update(ctx, db, &u); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return weberr.Conflict(err, weberr.WithMessage(err.Error()))
		}
		return err
	}

	SyncEntitlement(ctx, db, rdb, log, u.ID)

	p, err := FetchProfile(ctx, db, u.ID)
	if err != nil {
		return fmt.Errorf("fetching updated user[%s]: %w", u.ID, err)
	}
	return web.Respond(ctx, w, profileResponse{true, p}, http.StatusOK)
}
