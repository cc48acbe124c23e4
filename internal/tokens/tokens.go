package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chitly/chit/internal/config"
	"github.com/chitly/chit/internal/identity"
)

var (
	// ErrTokenInvalid covers malformed, expired and wrongly signed tokens.
	ErrTokenInvalid = errors.New("tokens: invalid token")
	// ErrTokenRevoked is returned for tokens that were logged out before expiry.
	ErrTokenRevoked = errors.New("tokens: token revoked")
)

// GenerateAccessToken creates a signed JWT access token for the identity
func GenerateAccessToken(cfg *config.Config, ident *identity.Identity, ttl time.Duration) (string, error) {
	email := ""
	if len(ident.Emails) > 0 {
		email = ident.Emails[0]
	}
	claims := jwt.MapClaims{
		"sub":   ident.ID,
		"name":  ident.DisplayName,
		"email": email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}

// Verifier parses and validates access tokens. An optional revocation check
// (backed by the session blacklist) runs after signature validation.
type Verifier struct {
	secret  []byte
	revoked func(ctx context.Context, raw string) (bool, error)
}

// NewVerifier builds a Verifier for tokens signed with secret. revoked may be
// nil when no blacklist is configured.
func NewVerifier(secret string, revoked func(ctx context.Context, raw string) (bool, error)) *Verifier {
	return &Verifier{secret: []byte(secret), revoked: revoked}
}

// Verify validates the raw token and returns its claims as a map, the shape
// the auth middleware stores on the request context.
func (v *Verifier) Verify(ctx context.Context, raw string) (map[string]interface{}, error) {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	if sub, _ := mc["sub"].(string); sub == "" {
		return nil, ErrTokenInvalid
	}
	if v.revoked != nil {
		rv, err := v.revoked(ctx, raw)
		if err != nil {
			return nil, err
		}
		if rv {
			return nil, ErrTokenRevoked
		}
	}
	return map[string]interface{}(mc), nil
}
