// Package claims carries the authenticated caller through the request
// context.
package claims

import (
	"context"
	"errors"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

var ErrMissing = errors.New("claims missing from context")

type Claims struct {
	UserID string
	Name   string
	Role   string
}

func (c Claims) Admin() bool { return c.Role == RoleAdmin }

// CanAccess reports whether the caller may act on resources of userID.
func (c Claims) CanAccess(userID string) bool {
	return c.Admin() || c.UserID == userID
}

type ctxKey int

const claimsKey ctxKey = 1

func Set(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, claimsKey, clm)
}

func Get(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimsKey).(Claims)
	if !ok {
		return Claims{}, ErrMissing
	}
	return v, nil
}
