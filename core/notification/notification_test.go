package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/irsalhamdi/e-learning/core/notification"
	"github.com/irsalhamdi/e-learning/core/user"
	"github.com/irsalhamdi/e-learning/database/dbtest"
	"github.com/jmoiron/sqlx"
)

func seedUser(t *testing.T, db *sqlx.DB, email string) string {
	t.Helper()
	u, err := user.New("Learner", email, "secret123", time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if err := user.Create(context.Background(), db, u); err != nil {
		t.Fatal(err)
	}
	return u.ID
}

func TestListByUser(t *testing.T) {
	db := dbtest.NewDB(t, "notification_list")
	ctx := context.Background()

	me := seedUser(t, db, "me@example.com")
	other := seedUser(t, db, "other@example.com")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	at := map[string]time.Time{
		"first":  base,
		"third":  base.Add(2 * time.Hour),
		"second": base.Add(time.Hour),
	}
	for _, title := range []string{"first", "third", "second"} {
		n, err := notification.Create(ctx, db, me, title, "message "+title)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := db.Exec(`UPDATE notifications SET created_at = $1 WHERE notification_id = $2`, at[title], n.ID); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := notification.Create(ctx, db, other, "not mine", "hidden"); err != nil {
		t.Fatal(err)
	}

	ns, err := notification.ListByUser(ctx, db, me)
	if err != nil {
		t.Fatal(err)
	}

	var titles []string
	for _, n := range ns {
		titles = append(titles, n.Title)
		if n.UserID != me || n.Status != notification.StatusUnread {
			t.Errorf("unexpected notification %+v", n)
		}
	}
	if diff := cmp.Diff([]string{"third", "second", "first"}, titles); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestListByUserEmpty(t *testing.T) {
	db := dbtest.NewDB(t, "notification_empty")
	me := seedUser(t, db, "me@example.com")

	ns, err := notification.ListByUser(context.Background(), db, me)
	if err != nil {
		t.Fatal(err)
	}
	if len(ns) != 0 {
		t.Fatalf("expected no notifications, got %d", len(ns))
	}
}
