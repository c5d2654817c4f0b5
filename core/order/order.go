package order

import (
	"encoding/json"
	"time"
)

type Order struct {
	ID          string          `json:"id" db:"order_id"`
	UserID      string          `json:"userId" db:"user_id"`
	CourseID    string          `json:"courseId" db:"course_id"`
	PaymentInfo json.RawMessage `json:"payment_info" db:"-"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

type OrderNew struct {
	UserID      string          `json:"userId"`
	CourseID    string          `json:"courseId"`
	PaymentInfo json.RawMessage `json:"payment_info"`
}

// Summary is an order joined with the course it bought.
type Summary struct {
	Order
	CourseName      string  `json:"courseName" db:"course_name"`
	CourseThumbnail string  `json:"courseThumbnail" db:"course_thumbnail"`
	CoursePrice     float64 `json:"coursePrice" db:"course_price"`
}
