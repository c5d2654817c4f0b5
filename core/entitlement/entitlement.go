// Package entitlement caches a snapshot of each user, including the courses
// they own, so that request authentication does not hit the database.
//
// A snapshot is only ever written from a database read taken after the write
// that changed it committed.
package entitlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/irsalhamdi/e-learning/cache"
	"github.com/redis/go-redis/v9"
)

var ErrMiss = cache.ErrMiss

type Snapshot struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Avatar  string   `json:"avatar"`
	Role    string   `json:"role"`
	Courses []string `json:"courses"`
}

// Owns reports whether the snapshot lists courseID.
func (s Snapshot) Owns(courseID string) bool {
	for _, id := range s.Courses {
		if id == courseID {
			return true
		}
	}
	return false
}

func Key(userID string) string { return "user:" + userID }

func Refresh(ctx context.Context, rdb redis.Cmdable, snap Snapshot) error {
	if snap.ID == "" {
		return errors.New("snapshot without user id")
	}
	if snap.Courses == nil {
		snap.Courses = []string{}
	}

	if err := cache.SetJSON(ctx, rdb, Key(snap.ID), snap, cache.Week); err != nil {
		return fmt.Errorf("refreshing entitlement of user[%s]: %w", snap.ID, err)
	}
	return nil
}

// Get returns the cached snapshot of userID, or ErrMiss.
func Get(ctx context.Context, rdb redis.Cmdable, userID string) (Snapshot, error) {
	var snap Snapshot
	if err := cache.GetJSON(ctx, rdb, Key(userID), &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func Invalidate(ctx context.Context, rdb redis.Cmdable, userID string) error {
	return cache.Delete(ctx, rdb, Key(userID))
}
