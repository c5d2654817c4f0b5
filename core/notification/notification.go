// Package notification records messages addressed to a user.
package notification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/e-learning/api/web"
	"github.com/irsalhamdi/e-learning/api/weberr"
	"github.com/irsalhamdi/e-learning/core/claims"
	"github.com/irsalhamdi/e-learning/database"
	"github.com/irsalhamdi/e-learning/validate"
	"github.com/jmoiron/sqlx"
)

const (
	StatusUnread = "unread"
	StatusRead   = "read"
)

type Notification struct {
	ID        string    `json:"id" db:"notification_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

func Create(ctx context.Context, db sqlx.ExtContext, userID, title, message string) (Notification, error) {
	n := Notification{
		ID:        validate.GenerateID(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Status:    StatusUnread,
		CreatedAt: time.Now().UTC(),
	}

	const q = `
	INSERT INTO notifications
		(notification_id, user_id, title, message, status, created_at)
	VALUES
		(:notification_id, :user_id, :title, :message, :status, :created_at)`

	if _, err := database.NamedExecContext(ctx, db, q, n); err != nil {
		return Notification{}, fmt.Errorf("inserting notification for user[%s]: %w", userID, err)
	}
	return n, nil
}

// ListByUser returns the notifications of a user, newest first.
func ListByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Notification, error) {
	in := struct {
		UserID string `db:"user_id"`
	}{userID}

	const q = `
	SELECT
		notification_id, user_id, title, message, status, created_at
	FROM notifications
	WHERE user_id = :user_id
	ORDER BY created_at DESC, notification_id`

	var ns []Notification
	if err := database.NamedQuerySlice(ctx, db, q, in, &ns); err != nil {
		return nil, fmt.Errorf("selecting notifications of user[%s]: %w", userID, err)
	}
	return ns, nil
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		ns, err := ListByUser(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		resp := struct {
			Success       bool           `json:"success"`
			Notifications []Notification `json:"notifications"`
		}{true, ns}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}
