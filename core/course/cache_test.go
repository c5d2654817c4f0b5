package course

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/irsalhamdi/e-learning/cache"
	"github.com/irsalhamdi/e-learning/database/dbtest"
	"github.com/irsalhamdi/e-learning/validate"
	"github.com/sirupsen/logrus"
)

func quietLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestForgetDropsView(t *testing.T) {
	rdb, mr := dbtest.NewRedis(t)
	ctx := context.Background()
	id := validate.GenerateID()

	key, err := CacheKey(ctx, rdb, id)
	if err != nil {
		t.Fatal(err)
	}
	if err := cache.SetJSON(ctx, rdb, key, Course{ID: id}, cache.Week); err != nil {
		t.Fatal(err)
	}

	Forget(ctx, rdb, quietLog(), id)

	if mr.Exists(key) {
		t.Fatal("view still cached after Forget")
	}
}

func TestForgetRetiresLateWriters(t *testing.T) {
	rdb, _ := dbtest.NewRedis(t)
	ctx := context.Background()
	id := validate.GenerateID()

	// A reader resolves its key, then loads the course from the database
	// while a purchase commits and forgets the view.
	readerKey, err := CacheKey(ctx, rdb, id)
	if err != nil {
		t.Fatal(err)
	}
	Forget(ctx, rdb, quietLog(), id)

	if err := cache.SetJSON(ctx, rdb, readerKey, Course{ID: id, Purchased: 0}, cache.Week); err != nil {
		t.Fatal(err)
	}

	key, err := CacheKey(ctx, rdb, id)
	if err != nil {
		t.Fatal(err)
	}
	if key == readerKey {
		t.Fatalf("key %q not moved on by Forget", key)
	}

	var c Course
	if err := cache.GetJSON(ctx, rdb, key, &c); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("expected the late copy to stay unread, got %v (%+v)", err, c)
	}
}
