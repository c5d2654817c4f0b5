// Package auth issues and verifies the tokens used by the mobile app.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/e-learning/api/web"
	"github.com/irsalhamdi/e-learning/api/weberr"
	"github.com/irsalhamdi/e-learning/core/user"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type session struct {
	Success bool `json:"success"`
	Tokens
	User user.Profile `json:"user"`
}

// start issues tokens for a user whose account is committed and publishes
// their entitlement snapshot.
func start(ctx context.Context, db *sqlx.DB, rdb redis.Cmdable, is *Issuer, log logrus.FieldLogger, userID string) (session, error) {
	user.SyncEntitlement(ctx, db, rdb, log, userID)

	p, err := user.FetchProfile(ctx, db, userID)
	if err != nil {
		return session{}, fmt.Errorf("fetching profile: %w", err)
	}

	tokens, err := is.Issue(ctx, userID)
	if err != nil {
		return session{}, err
	}
	return session{Success: true, Tokens: tokens, User: p}, nil
}

func HandleRegistration(db *sqlx.DB, rdb redis.Cmdable, is *Issuer, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var un user.UserNew
		if err := web.Decode(w, r, &un); err != nil {
			return err
		}

		u, err := user.New(un.Name, un.Email, un.Password, time.Now().UTC())
		if err != nil {
			return err
		}

		if err := user.Create(ctx, db, u); err != nil {
			if errors.Is(err, user.ErrEmailTaken) {
				return weberr.Conflict(err, weberr.WithMessage("email already exists"))
			}
			return err
		}

		s, err := start(ctx, db, rdb, is, log, u.ID)
		if err != nil {
			return err
		}
		return web.Respond(ctx, w, s, http.StatusCreated)
	}
}

type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func HandleLogin(db *sqlx.DB, rdb redis.Cmdable, is *Issuer, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in Login
		if err := web.Decode(w, r, &in); err != nil {
			return err
		}

		denied := weberr.WithMessage("invalid email or password")

		u, err := user.FetchByEmail(ctx, db, in.Email)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return weberr.NotAuthorized(err, denied)
			}
			return err
		}

		if err := u.CheckPassword(in.Password); err != nil {
			return weberr.NotAuthorized(err, denied)
		}

		s, err := start(ctx, db, rdb, is, log, u.ID)
		if err != nil {
			return err
		}
		return web.Respond(ctx, w, s, http.StatusOK)
	}
}

func HandleRefresh(is *Issuer) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in struct {
			RefreshToken string `json:"refreshToken" validate:"required"`
		}
		if err := web.Decode(w, r, &in); err != nil {
			return err
		}

		_, tokens, err := is.Rotate(ctx, in.RefreshToken)
		if err != nil {
			if errors.Is(err, ErrInvalidToken) {
				return weberr.NotAuthorized(err, weberr.WithMessage("refresh token is not valid"))
			}
			return err
		}

		resp := struct {
			Success bool `json:"success"`
			Tokens
		}{true, tokens}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

// HandleOauthCallback signs in with the code the app obtained from the
// provider, creating the account on first use.
func HandleOauthCallback(db *sqlx.DB, rdb redis.Cmdable, is *Issuer, provs map[string]Provider, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		name := web.Param(r, "provider")
		prov, ok := provs[name]
		if !ok {
			return weberr.NotFound(fmt.Errorf("provider[%s] not configured", name))
		}

		var in struct {
			Code string `json:"code" validate:"required"`
		}
		if err := web.Decode(w, r, &in); err != nil {
			return err
		}

		id, err := prov.Identify(ctx, in.Code)
		if err != nil {
			return weberr.NotAuthorized(err, weberr.WithMessage("could not sign in with "+name))
		}

		u, err := user.FetchByEmail(ctx, db, id.Email)
		switch {
		case errors.Is(err, user.ErrNotFound):
			if id.Name == "" {
				id.Name = id.Email
			}
			u, err = user.New(id.Name, id.Email, "", time.Now().UTC())
			if err != nil {
				return err
			}
			u.Avatar = id.Avatar
			if err := user.Create(ctx, db, u); err != nil {
				return err
			}
		case err != nil:
			return err
		}

		s, err := start(ctx, db, rdb, is, log, u.ID)
		if err != nil {
			return err
		}
		return web.Respond(ctx, w, s, http.StatusOK)
	}
}
