package blog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/irsalhamdi/e-learning/core/blog"
	"github.com/irsalhamdi/e-learning/core/user"
	"github.com/irsalhamdi/e-learning/database/dbtest"
	"github.com/irsalhamdi/e-learning/validate"
	"github.com/jmoiron/sqlx"
)

func seedAuthor(t *testing.T, db *sqlx.DB) user.User {
	t.Helper()
	u, err := user.New("Writer", "writer@example.com", "secret123", time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if err := user.Create(context.Background(), db, u); err != nil {
		t.Fatal(err)
	}
	return u
}

func TestList(t *testing.T) {
	db := dbtest.NewDB(t, "blog_list")
	ctx := context.Background()
	author := seedAuthor(t, db)

	blogs, err := blog.List(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if blogs == nil || len(blogs) != 0 {
		t.Fatalf("expected an empty list, got %#v", blogs)
	}

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, slug := range []string{"old", "newest", "middle"} {
		offset := []time.Duration{0, 2 * time.Hour, time.Hour}[i]
		bn := blog.BlogNew{Title: slug, Content: "body", Slug: slug}
		if _, err := blog.Create(ctx, db, author.ID, bn, base.Add(offset)); err != nil {
			t.Fatal(err)
		}
	}

	blogs, err = blog.List(ctx, db)
	if err != nil {
		t.Fatal(err)
	}

	var slugs []string
	for _, b := range blogs {
		slugs = append(slugs, b.Slug)
		if b.Status != blog.StatusDraft {
			t.Errorf("blog %s: status %q, want %q", b.Slug, b.Status, blog.StatusDraft)
		}
	}
	if diff := cmp.Diff([]string{"newest", "middle", "old"}, slugs); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestFetch(t *testing.T) {
	db := dbtest.NewDB(t, "blog_fetch")
	ctx := context.Background()
	author := seedAuthor(t, db)

	if _, err := db.Exec(`UPDATE users SET avatar_url = $1 WHERE user_id = $2`, "https://cdn.example.com/w.png", author.ID); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	bn := blog.BlogNew{Title: "Hello", Content: "first post", Slug: "hello", Status: blog.StatusPublished}
	b, err := blog.Create(ctx, db, author.ID, bn, now)
	if err != nil {
		t.Fatal(err)
	}

	got, err := blog.Fetch(ctx, db, b.ID)
	if err != nil {
		t.Fatal(err)
	}

	want := blog.Detail{
		Blog:   b,
		Author: blog.Author{ID: author.ID, Name: "Writer", Avatar: "https://cdn.example.com/w.png"},
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
		t.Fatalf("blog mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchMissing(t *testing.T) {
	db := dbtest.NewDB(t, "blog_fetch_missing")
	ctx := context.Background()

	for _, id := range []string{validate.GenerateID(), "not-a-uuid"} {
		if _, err := blog.Fetch(ctx, db, id); !errors.Is(err, blog.ErrNotFound) {
			t.Errorf("Fetch(%q): got %v, want %v", id, err, blog.ErrNotFound)
		}
	}
}

func TestCreateSlugTaken(t *testing.T) {
	db := dbtest.NewDB(t, "blog_slug")
	ctx := context.Background()
	author := seedAuthor(t, db)

	bn := blog.BlogNew{Title: "Hello", Content: "body", Slug: "hello"}
	if _, err := blog.Create(ctx, db, author.ID, bn, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}
	if _, err := blog.Create(ctx, db, author.ID, bn, time.Now().UTC()); !errors.Is(err, blog.ErrSlugTaken) {
		t.Fatalf("got %v, want %v", err, blog.ErrSlugTaken)
	}
}
