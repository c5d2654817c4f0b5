package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/e-learning/api/web"
	"github.com/irsalhamdi/e-learning/api/weberr"
	"github.com/irsalhamdi/e-learning/core/claims"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func toWebErr(err error) error {
	switch {
	case errors.Is(err, ErrMissingField), errors.Is(err, ErrInvalidPayment):
		return weberr.BadRequest(err, weberr.WithMessage(err.Error()))
	case errors.Is(err, ErrNotFound):
		return weberr.NotFound(err, weberr.WithMessage(err.Error()))
	case errors.Is(err, ErrAlreadyPurchased):
		return weberr.Conflict(err, weberr.WithMessage(err.Error()))
	}
	return err
}

// HandleCreateMobile records a purchase paid on the device. Users may only
// buy for themselves; admins may grant courses to anyone.
func HandleCreateMobile(db *sqlx.DB, rdb redis.Cmdable, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		var on OrderNew
		if err := web.Decode(w, r, &on); err != nil {
			return err
		}

		if on.UserID == "" {
			on.UserID = clm.UserID
		}
		if !clm.CanAccess(on.UserID) {
			return weberr.Forbidden(fmt.Errorf("user[%s] ordering for user[%s]", clm.UserID, on.UserID))
		}

		ord, err := Create(ctx, db, rdb, log, on)
		if err != nil {
			return toWebErr(err)
		}

		resp := struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
			Order   Order  `json:"order"`
		}{true, "Order created successfully", ord}
		return web.Respond(ctx, w, resp, http.StatusCreated)
	}
}

func HandleListByUser(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		userID := web.Param(r, "userId")
		if !clm.CanAccess(userID) {
			return weberr.Forbidden(fmt.Errorf("user[%s] listing orders of user[%s]", clm.UserID, userID))
		}

		orders, err := ListByUser(ctx, db, userID)
		if err != nil {
			return err
		}

		resp := struct {
			Success bool      `json:"success"`
			Orders  []Summary `json:"orders"`
		}{true, orders}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}
