package identity

import (
	"strings"
	"time"
)

// Known OAuth provider names.
const (
	ProviderFacebook = "facebook"
	ProviderGoogle   = "google"
)

// OAuthLink ties an identity to one external provider account.
type OAuthLink struct {
	UserID string `bson:"id" json:"id"`
	Token  string `bson:"token" json:"-"`
}

// Identity is the stored user record unifying all of a person's credentials.
// An identity may hold only a password, only provider links, or both.
type Identity struct {
	ID           string               `bson:"_id,omitempty" json:"id"`
	Emails       []string             `bson:"emails" json:"emails"`
	PasswordHash []byte               `bson:"passwordHash,omitempty" json:"-"`
	FirstName    string               `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName     string               `bson:"lastName,omitempty" json:"lastName,omitempty"`
	DisplayName  string               `bson:"displayName,omitempty" json:"displayName,omitempty"`
	OAuthLinks   map[string]OAuthLink `bson:"oauthLinks,omitempty" json:"-"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
}

// Profile carries the normalized fields an OAuth provider reports about a person.
// Email is the first verified address when the provider exposes a list, falling
// back to the raw profile email field (some providers omit the structured list
// for privacy-restricted scopes).
type Profile struct {
	Email       string
	FirstName   string
	LastName    string
	DisplayName string
}

// NormalizeEmail lowercases and trims an email before any lookup or store.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasPassword reports whether a local credential is attached.
func (i *Identity) HasPassword() bool {
	return len(i.PasswordHash) > 0
}

// HasEmail reports whether the identity already owns the given (normalized) email.
func (i *Identity) HasEmail(email string) bool {
	for _, e := range i.Emails {
		if e == email {
			return true
		}
	}
	return false
}

// AddEmail appends an email if not already present.
func (i *Identity) AddEmail(email string) {
	if email == "" || i.HasEmail(email) {
		return
	}
	i.Emails = append(i.Emails, email)
}

// Link returns the provider link, if any.
func (i *Identity) Link(provider string) (OAuthLink, bool) {
	l, ok := i.OAuthLinks[provider]
	return l, ok
}

// SetLink sets or overwrites the link for a provider.
func (i *Identity) SetLink(provider string, l OAuthLink) {
	if i.OAuthLinks == nil {
		i.OAuthLinks = map[string]OAuthLink{}
	}
	i.OAuthLinks[provider] = l
}

// fillProfile copies profile names into unset fields only; existing values win.
func (i *Identity) fillProfile(p Profile) {
	if i.FirstName == "" {
		i.FirstName = p.FirstName
	}
	if i.LastName == "" {
		i.LastName = p.LastName
	}
	if i.DisplayName == "" {
		i.DisplayName = p.DisplayName
	}
	i.ensureDisplayName()
}

// ensureDisplayName applies the "First Last" default when both names exist
// and no explicit display name was supplied.
func (i *Identity) ensureDisplayName() {
	if i.DisplayName == "" && i.FirstName != "" && i.LastName != "" {
		i.DisplayName = i.FirstName + " " + i.LastName
	}
}
