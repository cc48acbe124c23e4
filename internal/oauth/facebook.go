package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	"github.com/chitly/chit/internal/config"
	"github.com/chitly/chit/internal/identity"
)

const facebookGraphURL = "https://graph.facebook.com/v19.0/me?fields=id,email,first_name,last_name,name"

type facebookAdapter struct {
	conf       *oauth2.Config
	graphURL   string
	httpClient *http.Client
}

// NewFacebookAdapter creates a Facebook OAuth provider adapter.
func NewFacebookAdapter(cfg config.OAuthProviderConfig) Adapter {
	return &facebookAdapter{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"email", "public_profile"},
			Endpoint:     facebook.Endpoint,
		},
		graphURL:   facebookGraphURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *facebookAdapter) ProviderID() string {
	return identity.ProviderFacebook
}

func (a *facebookAdapter) AuthURL(state string) (string, error) {
	return a.conf.AuthCodeURL(state), nil
}

// ResolveProfile exchanges the authorization code and fetches the Graph API profile.
func (a *facebookAdapter) ResolveProfile(ctx context.Context, code string) (ProviderUser, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	tok, err := a.conf.Exchange(ctx, code)
	if err != nil {
		return ProviderUser{}, ErrInvalidCode
	}

	u, err := a.fetchGraphUser(ctx, tok.AccessToken)
	if err != nil {
		return ProviderUser{}, fmt.Errorf("fetch facebook user: %w", err)
	}
	if u.Email == "" {
		return ProviderUser{}, ErrNoProviderEmail
	}

	return ProviderUser{
		ID:          u.ID,
		AccessToken: tok.AccessToken,
		Profile: identity.Profile{
			Email:       u.Email,
			FirstName:   u.FirstName,
			LastName:    u.LastName,
			DisplayName: u.Name,
		},
	}, nil
}

func (a *facebookAdapter) fetchGraphUser(ctx context.Context, accessToken string) (*fbUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.graphURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facebook graph api returned status %d", resp.StatusCode)
	}

	var user fbUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

type fbUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Name      string `json:"name"`
}

var _ Adapter = (*facebookAdapter)(nil)
