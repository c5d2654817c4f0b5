package course

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/e-learning/api/web"
	"github.com/irsalhamdi/e-learning/api/weberr"
	"github.com/irsalhamdi/e-learning/core/claims"
	"github.com/irsalhamdi/e-learning/core/notification"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// toWebErr maps the course errors to their responses.
func toWebErr(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return weberr.NotFound(err, weberr.WithMessage("course not found"))
	case errors.Is(err, ErrForbidden):
		return weberr.Forbidden(err, weberr.WithMessage("you are not eligible to access this course"))
	case errors.Is(err, ErrInvalidContent), errors.Is(err, ErrInvalidQuestion), errors.Is(err, ErrInvalidReview):
		return weberr.BadRequest(err, weberr.WithMessage(err.Error()))
	}
	return err
}

func HandleShow(db *sqlx.DB, rdb redis.Cmdable, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := FetchPublic(ctx, db, rdb, log, web.Param(r, "id"))
		if err != nil {
			return toWebErr(err)
		}

		resp := struct {
			Success bool   `json:"success"`
			Course  Course `json:"course"`
		}{true, c}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courses, err := List(ctx, db)
		if err != nil {
			return err
		}

		resp := struct {
			Success bool     `json:"success"`
			Courses []Course `json:"courses"`
		}{true, courses}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleShowContent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		content, err := FetchOwnedContent(ctx, db, clm, web.Param(r, "id"))
		if err != nil {
			return toWebErr(err)
		}

		resp := struct {
			Success bool      `json:"success"`
			Content []Content `json:"content"`
		}{true, content}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cn CourseNew
		if err := web.Decode(w, r, &cn); err != nil {
			return err
		}

		c, err := Create(ctx, db, cn)
		if err != nil {
			return err
		}

		resp := struct {
			Success bool   `json:"success"`
			Course  Course `json:"course"`
		}{true, c}
		return web.Respond(ctx, w, resp, http.StatusCreated)
	}
}

func HandleAddQuestion(db *sqlx.DB, rdb redis.Cmdable, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		var qn QuestionNew
		if err := web.Decode(w, r, &qn); err != nil {
			return err
		}

		q, err := AddQuestion(ctx, db, clm, qn)
		if err != nil {
			return toWebErr(err)
		}
		Forget(ctx, rdb, log, qn.CourseID)

		resp := struct {
			Success  bool     `json:"success"`
			Question Question `json:"question"`
		}{true, q}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleAddAnswer(db *sqlx.DB, rdb redis.Cmdable, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		var an AnswerNew
		if err := web.Decode(w, r, &an); err != nil {
			return err
		}

		a, err := AddAnswer(ctx, db, clm, an)
		if err != nil {
			return toWebErr(err)
		}
		Forget(ctx, rdb, log, an.CourseID)

		if a.AskerID != "" && a.AskerID != clm.UserID {
			msg := fmt.Sprintf("You have a new question reply in %s", a.ContentTitle)
			if _, err := notification.Create(ctx, db, a.AskerID, "New Question Reply Received", msg); err != nil {
				log.WithFields(logrus.Fields{"user_id": a.AskerID, "error": err}).Warn("reply notification failed")
			}
		}

		resp := struct {
			Success bool   `json:"success"`
			Answer  Answer `json:"answer"`
		}{true, a.Answer}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleAddReview(db *sqlx.DB, rdb redis.Cmdable, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		var rn ReviewNew
		if err := web.Decode(w, r, &rn); err != nil {
			return err
		}

		id := web.Param(r, "id")
		rv, err := AddReview(ctx, db, clm, id, rn)
		if err != nil {
			return toWebErr(err)
		}
		Forget(ctx, rdb, log, id)

		resp := struct {
			Success bool   `json:"success"`
			Review  Review `json:"review"`
		}{true, rv}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleAddReply(db *sqlx.DB, rdb redis.Cmdable, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		var rn ReplyNew
		if err := web.Decode(w, r, &rn); err != nil {
			return err
		}

		rp, err := AddReply(ctx, db, clm, rn)
		if err != nil {
			return toWebErr(err)
		}
		Forget(ctx, rdb, log, rn.CourseID)

		resp := struct {
			Success bool  `json:"success"`
			Reply   Reply `json:"reply"`
		}{true, rp}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}
