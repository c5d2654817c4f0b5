package local

import (
	"context"
	"errors"
)

// Course is the snapshot of a course kept in the cart.
type Course struct {
	ID             string   `json:"id" db:"course_id"`
	Name           string   `json:"name" db:"name"`
	Description    string   `json:"description" db:"description"`
	Categories     string   `json:"categories" db:"categories"`
	Price          float64  `json:"price" db:"price"`
	EstimatedPrice *float64 `json:"estimatedPrice,omitempty" db:"estimated_price"`
	ThumbnailURL   string   `json:"thumbnailUrl" db:"thumbnail_url"`
	Tags           string   `json:"tags" db:"tags"`
	Level          string   `json:"level" db:"level"`
	DemoURL        string   `json:"demoUrl" db:"demo_url"`
	Ratings        float64  `json:"ratings" db:"ratings"`
	Purchased      int      `json:"purchased" db:"purchased"`
}

type CartItem struct {
	Course
	UserID string `json:"userId" db:"user_id"`
}

// AddToCart stores the course in the user's cart, replacing the snapshot
// already there.
func (s *Store) AddToCart(ctx context.Context, c Course, userID string) error {
	if c.ID == "" || userID == "" {
		return ErrMissingField
	}

	const q = `
	INSERT INTO cart
		(course_id, user_id, name, description, categories, price, estimated_price,
		thumbnail_url, tags, level, demo_url, ratings, purchased)
	VALUES
		(:course_id, :user_id, :name, :description, :categories, :price, :estimated_price,
		:thumbnail_url, :tags, :level, :demo_url, :ratings, :purchased)
	ON CONFLICT (course_id, user_id) DO UPDATE SET
		name = excluded.name,
		description = excluded.description,
		categories = excluded.categories,
		price = excluded.price,
		estimated_price = excluded.estimated_price,
		thumbnail_url = excluded.thumbnail_url,
		tags = excluded.tags,
		level = excluded.level,
		demo_url = excluded.demo_url,
		ratings = excluded.ratings,
		purchased = excluded.purchased`

	if _, err := s.db.NamedExecContext(ctx, q, CartItem{Course: c, UserID: userID}); err != nil {
		return storageErr("add to cart", err)
	}
	return nil
}

func (s *Store) Cart(ctx context.Context, userID string) ([]CartItem, error) {
	const q = `
	SELECT
		course_id, user_id, name, description, categories, price, estimated_price,
		thumbnail_url, tags, level, demo_url, ratings, purchased
	FROM cart
	WHERE user_id = ?
	ORDER BY rowid`

	items := []CartItem{}
	if err := s.db.SelectContext(ctx, &items, q, userID); err != nil {
		return nil, storageErr("read cart", err)
	}
	return items, nil
}

func (s *Store) RemoveFromCart(ctx context.Context, courseID, userID string) error {
	const q = `DELETE FROM cart WHERE course_id = ? AND user_id = ?`

	if _, err := s.db.ExecContext(ctx, q, courseID, userID); err != nil {
		return storageErr("remove from cart", err)
	}
	return nil
}

func (s *Store) ClearCart(ctx context.Context, userID string) error {
	const q = `DELETE FROM cart WHERE user_id = ?`

	if _, err := s.db.ExecContext(ctx, q, userID); err != nil {
		return storageErr("clear cart", err)
	}
	return nil
}

func (s *Store) InCart(ctx context.Context, courseID, userID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM cart WHERE course_id = ? AND user_id = ?)`

	var found bool
	if err := s.db.GetContext(ctx, &found, q, courseID, userID); err != nil {
		return false, storageErr("check cart", err)
	}
	return found, nil
}

// Total sums the prices in the user's cart.
func Total(items []CartItem) float64 {
	var tot float64
	for _, it := range items {
		tot += it.Price
	}
	return tot
}

// IsStorage reports whether err is a failure of the device database.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
