// Package blog serves the articles published next to the course catalog.
package blog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/e-learning/database"
	"github.com/irsalhamdi/e-learning/validate"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound  = errors.New("blog not found")
	ErrSlugTaken = errors.New("slug already in use")
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

type Blog struct {
	ID         string    `json:"id" db:"blog_id"`
	Title      string    `json:"title" db:"title"`
	Content    string    `json:"content" db:"content"`
	Slug       string    `json:"slug" db:"slug"`
	AuthorID   string    `json:"authorId" db:"author_id"`
	CoverImage string    `json:"coverImageUrl" db:"cover_image_url"`
	Status     string    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

type Author struct {
	ID     string `json:"id" db:"author_id"`
	Name   string `json:"name" db:"author_name"`
	Avatar string `json:"avatar" db:"author_avatar"`
}

// Detail is a blog together with the public profile of its author.
type Detail struct {
	Blog
	Author Author `json:"author"`
}

type BlogNew struct {
	Title      string `json:"title" validate:"required"`
	Content    string `json:"content" validate:"required"`
	Slug       string `json:"slug" validate:"required,max=200"`
	CoverImage string `json:"coverImageUrl" validate:"omitempty,url"`
	Status     string `json:"status" validate:"omitempty,oneof=draft published"`
}

func Create(ctx context.Context, db sqlx.ExtContext, authorID string, bn BlogNew, now time.Time) (Blog, error) {
	b := Blog{
		ID:         validate.GenerateID(),
		Title:      bn.Title,
		Content:    bn.Content,
		Slug:       bn.Slug,
		AuthorID:   authorID,
		CoverImage: bn.CoverImage,
		Status:     bn.Status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if b.Status == "" {
		b.Status = StatusDraft
	}

	const q = `
	INSERT INTO blogs
		(blog_id, title, content, slug, author_id, cover_image_url, status, created_at, updated_at)
	VALUES
		(:blog_id, :title, :content, :slug, :author_id, :cover_image_url, :status, :created_at, :updated_at)`

	if _, err := database.NamedExecContext(ctx, db, q, b); err != nil {
		if errors.Is(err, database.ErrDBDuplicatedEntry) {
			return Blog{}, ErrSlugTaken
		}
		return Blog{}, fmt.Errorf("inserting blog[%s]: %w", bn.Slug, err)
	}
	return b, nil
}

// List returns every blog, newest first.
func List(ctx context.Context, db sqlx.ExtContext) ([]Blog, error) {
	const q = `
	SELECT
		blog_id, title, content, slug, author_id, cover_image_url, status, created_at, updated_at
	FROM blogs
	ORDER BY created_at DESC, blog_id`

	blogs := []Blog{}
	if err := database.NamedQuerySlice(ctx, db, q, struct{}{}, &blogs); err != nil {
		return nil, fmt.Errorf("selecting blogs: %w", err)
	}
	return blogs, nil
}

// Fetch returns a blog joined with its author.
func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Detail, error) {
	if err := validate.CheckID(id); err != nil {
		return Detail{}, ErrNotFound
	}

	in := struct {
		ID string `db:"blog_id"`
	}{id}

	const q = `
	SELECT
		b.blog_id, b.title, b.content, b.slug, b.author_id, b.cover_image_url, b.status,
		b.created_at, b.updated_at,
		u.name AS author_name, u.avatar_url AS author_avatar
	FROM blogs b
	JOIN users u ON u.user_id = b.author_id
	WHERE b.blog_id = :blog_id`

	var row struct {
		Blog
		AuthorName   string `db:"author_name"`
		AuthorAvatar string `db:"author_avatar"`
	}
	if err := database.NamedQueryStruct(ctx, db, q, in, &row); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return Detail{}, ErrNotFound
		}
		return Detail{}, fmt.Errorf("selecting blog[%s]: %w", id, err)
	}

	d := Detail{
		Blog:   row.Blog,
		Author: Author{ID: row.AuthorID, Name: row.AuthorName, Avatar: row.AuthorAvatar},
	}
	return d, nil
}
