// Package order records course purchases and keeps the ownership list, the
// purchase counter and the entitlement cache consistent with them.
package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/e-learning/core/course"
	"github.com/irsalhamdi/e-learning/core/notification"
	"github.com/irsalhamdi/e-learning/core/user"
	"github.com/irsalhamdi/e-learning/database"
	"github.com/irsalhamdi/e-learning/validate"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	ErrMissingField     = errors.New("userId and courseId are required")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyPurchased = errors.New("you have already purchased this course")
	ErrInvalidPayment   = errors.New("payment_info must be a JSON object")
)

type orderRow struct {
	ID          string         `db:"order_id"`
	UserID      string         `db:"user_id"`
	CourseID    string         `db:"course_id"`
	PaymentInfo types.JSONText `db:"payment_info"`
	CreatedAt   time.Time      `db:"created_at"`
}

type pair struct {
	UserID   string `db:"user_id"`
	CourseID string `db:"course_id"`
}

// Create records the purchase of a course. Ownership, the order row and the
// purchase counter are written in one transaction; the notification and the
// cache refresh happen after it committed and never undo it.
func Create(ctx context.Context, db *sqlx.DB, rdb redis.Cmdable, log logrus.FieldLogger, on OrderNew) (Order, error) {
	if on.UserID == "" || on.CourseID == "" {
		return Order{}, ErrMissingField
	}

	if _, err := user.Fetch(ctx, db, on.UserID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Order{}, fmt.Errorf("user[%s]: %w", on.UserID, ErrNotFound)
		}
		return Order{}, err
	}

	if validate.CheckID(on.CourseID) == nil {
		owned, err := course.Owns(ctx, db, on.UserID, on.CourseID)
		if err != nil {
			return Order{}, err
		}
		if owned {
			return Order{}, ErrAlreadyPurchased
		}
	}

	c, err := course.Fetch(ctx, db, on.CourseID)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			return Order{}, fmt.Errorf("course[%s]: %w", on.CourseID, ErrNotFound)
		}
		return Order{}, err
	}

	info, err := paymentInfo(on.PaymentInfo)
	if err != nil {
		return Order{}, err
	}

	row := orderRow{
		ID:          validate.GenerateID(),
		UserID:      on.UserID,
		CourseID:    on.CourseID,
		PaymentInfo: info,
		CreatedAt:   time.Now().UTC(),
	}

	err = database.Transaction(ctx, db, func(tx sqlx.ExtContext) error {
		return purchase(ctx, tx, row)
	})
	if err != nil {
		return Order{}, err
	}

	msg := fmt.Sprintf("You have successfully purchased the course: %s", c.Name)
	if _, err := notification.Create(ctx, db, on.UserID, "New Order", msg); err != nil {
		log.WithFields(logrus.Fields{"order_id": row.ID, "error": err}).Warn("order notification failed")
	}

	user.SyncEntitlement(ctx, db, rdb, log, on.UserID)
	course.Forget(ctx, rdb, log, on.CourseID)

	return row.order(), nil
}

// purchase must run inside a transaction. The conditional insert on the
// ownership key is what serializes two concurrent purchases of the same pair.
func purchase(ctx context.Context, tx sqlx.ExtContext, row orderRow) error {
	p := pair{row.UserID, row.CourseID}

	const own = `
	INSERT INTO user_courses (user_id, course_id, created_at)
	VALUES (:user_id, :course_id, NOW())
	ON CONFLICT (user_id, course_id) DO NOTHING`

	res, err := database.NamedExecContext(ctx, tx, own, p)
	if err != nil {
		return fmt.Errorf("granting course[%s] to user[%s]: %w", row.CourseID, row.UserID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking grant: %w", err)
	}
	if n == 0 {
		return ErrAlreadyPurchased
	}

	const ins = `
	INSERT INTO orders
		(order_id, user_id, course_id, payment_info, created_at)
	VALUES
		(:order_id, :user_id, :course_id, :payment_info, :created_at)`

	if _, err := database.NamedExecContext(ctx, tx, ins, row); err != nil {
		if errors.Is(err, database.ErrDBDuplicatedEntry) {
			return ErrAlreadyPurchased
		}
		return fmt.Errorf("inserting order: %w", err)
	}

	const inc = `UPDATE courses SET purchased = purchased + 1 WHERE course_id = :course_id`

	if _, err := database.NamedExecContext(ctx, tx, inc, p); err != nil {
		return fmt.Errorf("incrementing purchases of course[%s]: %w", row.CourseID, err)
	}
	return nil
}

// paymentInfo keeps the provider payload as is, defaulting to an empty
// object. It must be a JSON object.
func paymentInfo(raw json.RawMessage) (types.JSONText, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return types.JSONText("{}"), nil
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, ErrInvalidPayment
	}
	return types.JSONText(raw), nil
}

func (r orderRow) order() Order {
	return Order{
		ID:          r.ID,
		UserID:      r.UserID,
		CourseID:    r.CourseID,
		PaymentInfo: json.RawMessage(r.PaymentInfo),
		CreatedAt:   r.CreatedAt,
	}
}

// ListByUser returns the orders of a user with a summary of each course,
// newest first.
func ListByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Summary, error) {
	if err := validate.CheckID(userID); err != nil {
		return []Summary{}, nil
	}

	in := struct {
		UserID string `db:"user_id"`
	}{userID}

	const q = `
	SELECT
		o.order_id, o.user_id, o.course_id, o.payment_info, o.created_at,
		c.name AS course_name, c.thumbnail_url AS course_thumbnail, c.price AS course_price
	FROM orders o
	JOIN courses c ON c.course_id = o.course_id
	WHERE o.user_id = :user_id
	ORDER BY o.created_at DESC, o.order_id`

	var rows []struct {
		orderRow
		CourseName      string  `db:"course_name"`
		CourseThumbnail string  `db:"course_thumbnail"`
		CoursePrice     float64 `db:"course_price"`
	}
	if err := database.NamedQuerySlice(ctx, db, q, in, &rows); err != nil {
		return nil, fmt.Errorf("selecting orders of user[%s]: %w", userID, err)
	}

	out := make([]Summary, 0, len(rows))
	for _, r := range rows {
		out = append(out, Summary{
			Order:           r.order(),
			CourseName:      r.CourseName,
			CourseThumbnail: r.CourseThumbnail,
			CoursePrice:     r.CoursePrice,
		})
	}
	return out, nil
}
