package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

type Identity struct {
	Email  string
	Name   string
	Avatar string
}

// Provider turns the authorization code obtained by the mobile app into a
// verified identity.
type Provider interface {
	Identify(ctx context.Context, code string) (Identity, error)
}

type ProviderConfig struct {
	Name        string
	Client      string
	Secret      string
	URL         string
	RedirectURL string
}

type oidcProvider struct {
	verifier *oidc.IDTokenVerifier
	oauth    oauth2.Config
}

// MakeProviders discovers every configured provider. Providers without a
// client id are skipped.
func MakeProviders(ctx context.Context, cfgs []ProviderConfig) (map[string]Provider, error) {
	provs := make(map[string]Provider, len(cfgs))
	for _, cfg := range cfgs {
		if cfg.Client == "" {
			continue
		}

		p, err := oidc.NewProvider(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("discovering provider[%s]: %w", cfg.Name, err)
		}

		provs[cfg.Name] = &oidcProvider{
			verifier: p.Verifier(&oidc.Config{ClientID: cfg.Client}),
			oauth: oauth2.Config{
				ClientID:     cfg.Client,
				ClientSecret: cfg.Secret,
				Endpoint:     p.Endpoint(),
				RedirectURL:  cfg.RedirectURL,
				Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
			},
		}
	}
	return provs, nil
}

func (p *oidcProvider) Identify(ctx context.Context, code string) (Identity, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("exchanging code: %w", err)
	}

	raw, ok := tok.Extra("id_token").(string)
	if !ok {
		return Identity{}, errors.New("no id_token in token response")
	}

	idt, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return Identity{}, fmt.Errorf("verifying id_token: %w", err)
	}

	var clm struct {
		Email    string `json:"email"`
		Verified bool   `json:"email_verified"`
		Name     string `json:"name"`
		Picture  string `json:"picture"`
	}
	if err := idt.Claims(&clm); err != nil {
		return Identity{}, fmt.Errorf("decoding id_token claims: %w", err)
	}
	if clm.Email == "" || !clm.Verified {
		return Identity{}, errors.New("email not verified by the provider")
	}

	return Identity{Email: clm.Email, Name: clm.Name, Avatar: clm.Picture}, nil
}
