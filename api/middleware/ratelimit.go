package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/irsalhamdi/e-learning/api/web"
	"github.com/irsalhamdi/e-learning/api/weberr"
	"github.com/irsalhamdi/e-learning/core/claims"
	"github.com/irsalhamdi/e-learning/rate"
)

// RateLimit rejects requests once the caller exhausted its budget. Callers
// are identified by user id when authenticated and by remote address
// otherwise.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if !lim.Check(clientID(ctx, r)) {
				return weberr.TooManyRequests(errors.New("rate limit exceeded"))
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func clientID(ctx context.Context, r *http.Request) string {
	if clm, err := claims.Get(ctx); err == nil {
		return "user:" + clm.UserID
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "addr:" + r.RemoteAddr
	}
	return "addr:" + host
}
