package oauth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/chitly/chit/internal/config"
	"github.com/chitly/chit/internal/identity"
)

const googleIssuer = "https://accounts.google.com"

// claimsToken is satisfied by *oidc.IDToken and by test fakes.
type claimsToken interface {
	Claims(v interface{}) error
}

type googleAdapter struct {
	conf   *oauth2.Config
	verify func(ctx context.Context, rawIDToken string) (claimsToken, error)
}

// NewGoogleAdapter creates a Google OAuth provider adapter. It performs OIDC
// discovery against the Google issuer, so it needs network access at startup.
func NewGoogleAdapter(ctx context.Context, cfg config.OAuthProviderConfig) (Adapter, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return &googleAdapter{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
			Endpoint:     provider.Endpoint(),
		},
		verify: func(ctx context.Context, raw string) (claimsToken, error) {
			return verifier.Verify(ctx, raw)
		},
	}, nil
}

func (a *googleAdapter) ProviderID() string {
	return identity.ProviderGoogle
}

func (a *googleAdapter) AuthURL(state string) (string, error) {
	return a.conf.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// ResolveProfile exchanges the code and reads the profile from the verified ID token.
func (a *googleAdapter) ResolveProfile(ctx context.Context, code string) (ProviderUser, error) {
	tok, err := a.conf.Exchange(ctx, code)
	if err != nil {
		return ProviderUser{}, ErrInvalidCode
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return ProviderUser{}, fmt.Errorf("google token response missing id_token")
	}
	idToken, err := a.verify(ctx, rawIDToken)
	if err != nil {
		return ProviderUser{}, fmt.Errorf("verify id_token: %w", err)
	}

	var claims struct {
		Sub        string `json:"sub"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Name       string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return ProviderUser{}, fmt.Errorf("decode id_token claims: %w", err)
	}
	if claims.Email == "" {
		return ProviderUser{}, ErrNoProviderEmail
	}

	return ProviderUser{
		ID:          claims.Sub,
		AccessToken: tok.AccessToken,
		Profile: identity.Profile{
			Email:       claims.Email,
			FirstName:   claims.GivenName,
			LastName:    claims.FamilyName,
			DisplayName: claims.Name,
		},
	}, nil
}

var _ Adapter = (*googleAdapter)(nil)
