package blog

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/irsalhamdi/e-learning/api/web"
	"github.com/irsalhamdi/e-learning/api/weberr"
	"github.com/irsalhamdi/e-learning/core/claims"
	"github.com/jmoiron/sqlx"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		blogs, err := List(ctx, db)
		if err != nil {
			return err
		}

		resp := struct {
			Success bool   `json:"success"`
			Blogs   []Blog `json:"blogs"`
		}{true, blogs}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		d, err := Fetch(ctx, db, web.Param(r, "id"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err, weberr.WithMessage("blog not found"))
			}
			return err
		}

		resp := struct {
			Success bool   `json:"success"`
			Blog    Detail `json:"blog"`
		}{true, d}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

// HandleCreate publishes a blog authored by the calling admin.
func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		var bn BlogNew
		if err := web.Decode(w, r, &bn); err != nil {
			return err
		}

		b, err := Create(ctx, db, clm.UserID, bn, time.Now().UTC())
		if err != nil {
			if errors.Is(err, ErrSlugTaken) {
				return weberr.Conflict(err, weberr.WithMessage(err.Error()))
			}
			return err
		}

		resp := struct {
			Success bool `json:"success"`
			Blog    Blog `json:"blog"`
		}{true, b}
		return web.Respond(ctx, w, resp, http.StatusCreated)
	}
}
