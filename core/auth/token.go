package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/irsalhamdi/e-learning/config"
	"github.com/irsalhamdi/e-learning/random"
	"github.com/irsalhamdi/e-learning/validate"
	"github.com/redis/go-redis/v9"
)

const refreshLength = 48

var ErrInvalidToken = errors.New("invalid or expired token")

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Issuer signs short lived access tokens and keeps one refresh token per
// user in redis.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	rdb        redis.Cmdable
}

func NewIssuer(cfg config.Auth, rdb redis.Cmdable) *Issuer {
	return &Issuer{
		secret:     []byte(cfg.AccessSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		rdb:        rdb,
	}
}

func refreshKey(userID string) string { return "refresh:" + userID }

// Issue returns a new token pair for userID, replacing any previous refresh
// token of that user.
func (is *Issuer) Issue(ctx context.Context, userID string) (Tokens, error) {
	now := time.Now()
	clm := jwt.RegisteredClaims{
		ID:        validate.GenerateID(),
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(is.accessTTL)),
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, clm).SignedString(is.secret)
	if err != nil {
		return Tokens{}, fmt.Errorf("signing access token: %w", err)
	}

	secret, err := random.Token(refreshLength)
	if err != nil {
		return Tokens{}, fmt.Errorf("generating refresh token: %w", err)
	}

	if err := is.rdb.Set(ctx, refreshKey(userID), secret, is.refreshTTL).Err(); err != nil {
		return Tokens{}, fmt.Errorf("storing refresh token: %w", err)
	}

	return Tokens{AccessToken: access, RefreshToken: userID + "." + secret}, nil
}

// Parse verifies an access token and returns the user it was issued to.
func (is *Issuer) Parse(token string) (string, error) {
	var clm jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &clm, func(*jwt.Token) (any, error) {
		return is.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if clm.Subject == "" {
		return "", ErrInvalidToken
	}
	return clm.Subject, nil
}

// Rotate exchanges a refresh token for a new pair. The presented token stops
// being valid.
func (is *Issuer) Rotate(ctx context.Context, refresh string) (string, Tokens, error) {
	userID, secret, ok := strings.Cut(refresh, ".")
	if !ok || userID == "" || secret == "" {
		return "", Tokens{}, ErrInvalidToken
	}

	stored, err := is.rdb.Get(ctx, refreshKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", Tokens{}, ErrInvalidToken
	}
	if err != nil {
		return "", Tokens{}, fmt.Errorf("loading refresh token: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(secret)) != 1 {
		return "", Tokens{}, ErrInvalidToken
	}

	tokens, err := is.Issue(ctx, userID)
	if err != nil {
		return "", Tokens{}, err
	}
	return userID, tokens, nil
}

// Revoke drops the refresh token of userID.
func (is *Issuer) Revoke(ctx context.Context, userID string) error {
	if err := is.rdb.Del(ctx, refreshKey(userID)).Err(); err != nil {
		return fmt.Errorf("revoking refresh token: %w", err)
	}
	return nil
}
