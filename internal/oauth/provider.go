package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"github.com/chitly/chit/internal/identity"
)

var (
	// ErrInvalidCode is returned when the authorization code exchange fails.
	ErrInvalidCode = errors.New("oauth: invalid authorization code")
	// ErrNoProviderEmail is returned when a provider profile carries no email address.
	ErrNoProviderEmail = errors.New("oauth: provider returned no email")
	// ErrInvalidState is returned when a callback state token is unknown or already used.
	ErrInvalidState = errors.New("oauth: invalid state")
)

// ProviderUser is what a provider knows about the authenticated account,
// normalized so the identity resolver never sees provider-specific payloads.
type ProviderUser struct {
	ID          string
	AccessToken string
	Profile     identity.Profile
}

// Adapter abstracts a single OAuth provider. Implementations handle the
// provider-specific authorization URL, code exchange and profile fetch.
type Adapter interface {
	// ProviderID returns the provider identifier, e.g. "facebook".
	ProviderID() string

	// AuthURL builds the provider authorization URL with the given state token.
	AuthURL(state string) (string, error)

	// ResolveProfile exchanges the authorization code for a normalized profile.
	ResolveProfile(ctx context.Context, code string) (ProviderUser, error)
}

// NewState returns a fresh CSRF state token.
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
