package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/irsalhamdi/e-learning/config"
	"github.com/irsalhamdi/e-learning/database/dbtest"
)

func newIssuer(t *testing.T) *Issuer {
	t.Helper()
	rdb, _ := dbtest.NewRedis(t)
	return NewIssuer(config.Auth{
		AccessSecret: "test-secret",
		AccessTTL:    time.Minute,
		RefreshTTL:   time.Hour,
	}, rdb)
}

func TestIssueAndParse(t *testing.T) {
	is := newIssuer(t)

	tokens, err := is.Issue(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(tokens.RefreshToken, "u1.") {
		t.Fatalf("refresh token %q not bound to the user", tokens.RefreshToken)
	}

	userID, err := is.Parse(tokens.AccessToken)
	if err != nil {
		t.Fatal(err)
	}
	if userID != "u1" {
		t.Fatalf("expected u1, got %s", userID)
	}
}

func TestParseRejects(t *testing.T) {
	is := newIssuer(t)

	sign := func(method jwt.SigningMethod, key any, clm jwt.RegisteredClaims) string {
		s, err := jwt.NewWithClaims(method, clm).SignedString(key)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}

	now := time.Now()
	valid := jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))}
	expired := jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))}
	noExpiry := jwt.RegisteredClaims{Subject: "u1"}

	tests := map[string]string{
		"garbage":     "not-a-token",
		"wrong key":   sign(jwt.SigningMethodHS256, []byte("other"), valid),
		"wrong alg":   sign(jwt.SigningMethodHS512, []byte("test-secret"), valid),
		"expired":     sign(jwt.SigningMethodHS256, []byte("test-secret"), expired),
		"no expiry":   sign(jwt.SigningMethodHS256, []byte("test-secret"), noExpiry),
		"unsigned":    sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid),
		"empty token": "",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := is.Parse(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestRotate(t *testing.T) {
	is := newIssuer(t)
	ctx := context.Background()

	first, err := is.Issue(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}

	userID, second, err := is.Rotate(ctx, first.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if userID != "u1" {
		t.Fatalf("expected u1, got %s", userID)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	if _, _, err := is.Rotate(ctx, first.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected the old refresh token to be rejected, got %v", err)
	}

	for _, bad := range []string{"", "u1", "u1.", ".abc", "u2." + strings.TrimPrefix(second.RefreshToken, "u1.")} {
		if _, _, err := is.Rotate(ctx, bad); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("token %q: expected ErrInvalidToken, got %v", bad, err)
		}
	}
}

func TestRevoke(t *testing.T) {
	is := newIssuer(t)
	ctx := context.Background()

	tokens, err := is.Issue(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if err := is.Revoke(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := is.Rotate(ctx, tokens.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after revocation, got %v", err)
	}
}
