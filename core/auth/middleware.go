package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/irsalhamdi/e-learning/api/web"
	"github.com/irsalhamdi/e-learning/api/weberr"
	"github.com/irsalhamdi/e-learning/core/claims"
	"github.com/irsalhamdi/e-learning/core/entitlement"
	"github.com/irsalhamdi/e-learning/core/user"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// Authenticate verifies the bearer token and loads the caller's role from
// the entitlement cache, falling back to the database on a miss.
func Authenticate(is *Issuer, db *sqlx.DB, rdb redis.Cmdable, log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			token, ok := bearer(r)
			if !ok {
				return weberr.NotAuthorized(errors.New("missing bearer token"), weberr.WithMessage("please login to access this resource"))
			}

			userID, err := is.Parse(token)
			if err != nil {
				return weberr.NotAuthorized(err, weberr.WithMessage("access token is not valid"))
			}

			clm, err := load(ctx, db, rdb, log, userID)
			if err != nil {
				return err
			}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

func load(ctx context.Context, db *sqlx.DB, rdb redis.Cmdable, log logrus.FieldLogger, userID string) (claims.Claims, error) {
	snap, err := entitlement.Get(ctx, rdb, userID)
	if err == nil {
		return claims.Claims{UserID: snap.ID, Name: snap.Name, Role: snap.Role}, nil
	}
	if !errors.Is(err, entitlement.ErrMiss) {
		log.WithFields(logrus.Fields{"user_id": userID, "error": err}).Warn("entitlement cache unavailable")
	}

	u, err := user.Fetch(ctx, db, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return claims.Claims{}, weberr.NotAuthorized(err, weberr.WithMessage("please login to access this resource"))
		}
		return claims.Claims{}, fmt.Errorf("loading user[%s]: %w", userID, err)
	}
	return claims.Claims{UserID: u.ID, Name: u.Name, Role: u.Role}, nil
}

// Admin must run after Authenticate.
func Admin() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			clm, err := claims.Get(ctx)
			if err != nil {
				return weberr.NotAuthorized(err)
			}
			if !clm.Admin() {
				return weberr.Forbidden(fmt.Errorf("user[%s] with role %s", clm.UserID, clm.Role),
					weberr.WithMessage("role is not allowed to access this resource"))
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
