package test

import (
	"net/http"
	"testing"

	"github.com/irsalhamdi/e-learning/core/blog"
)

func TestBlog(t *testing.T) {
	env := NewTestEnv(t, "blog_test")

	adm := env.admin(t)
	learner := env.register(t)

	bn := blog.BlogNew{Title: "Release notes", Content: "what is new", Slug: "release-notes", Status: blog.StatusPublished}

	env.call(t, http.MethodPost, "/blog", "", bn, http.StatusUnauthorized, nil)
	env.call(t, http.MethodPost, "/blog", learner.AccessToken, bn, http.StatusForbidden, nil)

	var created struct {
		Blog blog.Blog `json:"blog"`
	}
	env.call(t, http.MethodPost, "/blog", adm.AccessToken, bn, http.StatusCreated, &created)
	env.call(t, http.MethodPost, "/blog", adm.AccessToken, bn, http.StatusConflict, nil)
	env.call(t, http.MethodPost, "/blog", adm.AccessToken, map[string]any{"title": "no body"}, http.StatusBadRequest, nil)

	var list struct {
		Blogs []blog.Blog `json:"blogs"`
	}
	env.call(t, http.MethodGet, "/blog", "", nil, http.StatusOK, &list)
	if len(list.Blogs) != 1 || list.Blogs[0].ID != created.Blog.ID {
		t.Fatalf("unexpected blog list: %+v", list.Blogs)
	}

	var show struct {
		Blog blog.Detail `json:"blog"`
	}
	env.call(t, http.MethodGet, "/blog/"+created.Blog.ID, "", nil, http.StatusOK, &show)
	if show.Blog.Author.ID != adm.User.ID || show.Blog.Author.Name != adm.User.Name {
		t.Fatalf("author not joined: %+v", show.Blog.Author)
	}

	env.call(t, http.MethodGet, "/blog/not-a-blog", "", nil, http.StatusNotFound, nil)
}
