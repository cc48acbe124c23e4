package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chitly/chit/internal/config"
	"github.com/chitly/chit/internal/identity"
	"github.com/chitly/chit/internal/oauth"
	"github.com/chitly/chit/internal/sessions"
	"github.com/chitly/chit/internal/tokens"
	"github.com/chitly/chit/pkg/logger"
	"github.com/chitly/chit/pkg/metrics"
	"github.com/chitly/chit/pkg/middleware"
)

// CredentialsRequest is the body for local signup and login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg      *config.Config
	ids      *identity.Service
	sessions *sessions.Service
	adapters map[string]oauth.Adapter
	states   oauth.StateStore
}

func NewAuthHandler(cfg *config.Config, ids *identity.Service, sess *sessions.Service, adapters map[string]oauth.Adapter, states oauth.StateStore) *AuthHandler {
	return &AuthHandler{cfg: cfg, ids: ids, sessions: sess, adapters: adapters, states: states}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup, ver middleware.Verifier) {
	load := IdentityLoader(h.ids.Store())
	a := rg.Group("/auth")
	a.POST("/signup", middleware.OptionalAuthMiddleware(ver), load, h.Signup)
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
	a.GET("/:provider", middleware.OptionalAuthMiddleware(ver), load, h.ProviderRedirect)
	a.GET("/:provider/callback", h.ProviderCallback)
	a.GET("/:provider/link", middleware.AuthMiddleware(ver), load, RequireProviderLink(h.ids), h.ProviderLink)
}

// Signup creates or extends an identity with a local password. A signed-in
// caller attaches the password to their existing account.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, "Invalid request body.")
		return
	}

	res, err := h.ids.Signup(c.Request.Context(), req.Email, req.Password, CurrentIdentity(c))
	if err != nil {
		h.authFailure(c, "signup", err)
		return
	}
	metrics.AuthAttempts.WithLabelValues("signup", "success").Inc()

	data, err := h.issueTokens(c, res.Identity)
	if err != nil {
		respondErr(c, http.StatusInternalServerError, "Failed to create session.")
		return
	}
	status := http.StatusOK
	if res.Outcome == identity.OutcomeCreated {
		status = http.StatusCreated
	}
	respondOK(c, status, res.Message, data)
}

// Login validates a local email/password pair and opens a session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, "Invalid request body.")
		return
	}

	ident, err := h.ids.Login(c.Request.Context(), req.Email, req.Password, nil)
	if err != nil {
		h.authFailure(c, "login", err)
		return
	}
	metrics.AuthAttempts.WithLabelValues("login", "success").Inc()

	data, err := h.issueTokens(c, ident)
	if err != nil {
		respondErr(c, http.StatusInternalServerError, "Failed to create session.")
		return
	}
	respondOK(c, http.StatusOK, "Login successful.", data)
}

// Refresh exchanges a refresh token for a new access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, "Invalid request body.")
		return
	}
	sess, err := h.sessions.ValidateRefresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		logger.Errorf("refresh validation failed: %v", err)
		respondErr(c, http.StatusInternalServerError, "Session validation failed.")
		return
	}
	if sess == nil {
		respondErr(c, http.StatusUnauthorized, "Invalid refresh token.")
		return
	}
	ident, err := h.ids.Store().FindByID(c.Request.Context(), sess.UserID)
	if err != nil || ident == nil {
		respondErr(c, http.StatusUnauthorized, "Account no longer exists.")
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, ident, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		respondErr(c, http.StatusInternalServerError, "Failed to create access token.")
		return
	}
	respondOK(c, http.StatusOK, "Token refreshed.", gin.H{
		"accessToken": access,
		"expiresIn":   int(h.cfg.JWT.AccessTokenTTL.Seconds()),
	})
}

// Logout deletes the refresh session and blacklists the live access token
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if auth := c.GetHeader("Authorization"); auth != "" {
		var at string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &at); n == 1 {
			if exp, err := parseExpFromJWT(at); err == nil {
				if ttl := time.Until(exp); ttl > 0 {
					if err := sessions.BlacklistAccessToken(c.Request.Context(), at, ttl); err != nil {
						respondErr(c, http.StatusInternalServerError, "Failed to revoke access token.")
						return
					}
				}
			}
		}
	}

	if err := h.sessions.DeleteRefresh(c.Request.Context(), req.RefreshToken); err != nil {
		respondErr(c, http.StatusInternalServerError, "Failed to remove session.")
		return
	}
	respondOK(c, http.StatusOK, "Logged out.", nil)
}

// ProviderRedirect starts a provider consent flow. A signed-in caller gets a
// state bound to their identity so the callback links instead of signing in.
func (h *AuthHandler) ProviderRedirect(c *gin.Context) {
	adapter, ok := h.adapters[c.Param("provider")]
	if !ok {
		respondErr(c, http.StatusNotFound, "Unknown provider.")
		return
	}

	state, err := oauth.NewState()
	if err != nil {
		respondErr(c, http.StatusInternalServerError, "Failed to start provider flow.")
		return
	}
	linkUserID := ""
	if ident := CurrentIdentity(c); ident != nil {
		linkUserID = ident.ID
	}
	if err := h.states.StoreState(c.Request.Context(), state, linkUserID, h.cfg.OAuth.StateTTL); err != nil {
		logger.Errorf("state store failed: %v", err)
		respondErr(c, http.StatusInternalServerError, "Failed to start provider flow.")
		return
	}

	url, err := adapter.AuthURL(state)
	if err != nil {
		respondErr(c, http.StatusInternalServerError, "Failed to build provider URL.")
		return
	}
	c.Redirect(http.StatusFound, url)
}

// ProviderCallback finishes a provider consent flow: create, refresh or link
// an identity depending on what the store already knows about the account.
func (h *AuthHandler) ProviderCallback(c *gin.Context) {
	provider := c.Param("provider")
	adapter, ok := h.adapters[provider]
	if !ok {
		respondErr(c, http.StatusNotFound, "Unknown provider.")
		return
	}
	if errParam := c.Query("error"); errParam != "" {
		metrics.AuthAttempts.WithLabelValues("oauth", "denied").Inc()
		respondErr(c, http.StatusUnauthorized, "Provider sign in was cancelled.")
		return
	}

	linkUserID, err := h.states.ConsumeState(c.Request.Context(), c.Query("state"))
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidState) {
			respondErr(c, http.StatusForbidden, "Invalid or expired state.")
			return
		}
		logger.Errorf("state consume failed: %v", err)
		respondErr(c, http.StatusInternalServerError, "Failed to validate state.")
		return
	}

	pu, err := adapter.ResolveProfile(c.Request.Context(), c.Query("code"))
	if err != nil {
		switch {
		case errors.Is(err, oauth.ErrInvalidCode):
			metrics.AuthAttempts.WithLabelValues("oauth", "invalid_code").Inc()
			respondErr(c, http.StatusUnauthorized, "Provider sign in failed.")
		case errors.Is(err, oauth.ErrNoProviderEmail):
			metrics.AuthAttempts.WithLabelValues("oauth", "no_email").Inc()
			respondErr(c, http.StatusForbidden, "Provider profile has no email address.")
		default:
			logger.Errorf("provider profile resolution failed: %v", err)
			respondErr(c, http.StatusInternalServerError, "Provider sign in failed.")
		}
		return
	}

	var current *identity.Identity
	if linkUserID != "" {
		current, err = h.ids.Store().FindByID(c.Request.Context(), linkUserID)
		if err != nil {
			respondErr(c, http.StatusInternalServerError, "Identity lookup failed.")
			return
		}
	}

	res, err := h.ids.OAuthCallback(c.Request.Context(), provider, pu.ID, pu.AccessToken, pu.Profile, current)
	if err != nil {
		h.authFailure(c, "oauth", err)
		return
	}
	metrics.AuthAttempts.WithLabelValues("oauth", "success").Inc()

	data, err := h.issueTokens(c, res.Identity)
	if err != nil {
		respondErr(c, http.StatusInternalServerError, "Failed to create session.")
		return
	}
	status := http.StatusOK
	if res.Outcome == identity.OutcomeCreated {
		status = http.StatusCreated
	}
	respondOK(c, status, res.Message, data)
}

// ProviderLink reports the caller's link for the :provider route param. The
// RequireProviderLink gate guarantees the link exists by the time this runs.
func (h *AuthHandler) ProviderLink(c *gin.Context) {
	provider := c.Param("provider")
	ident := CurrentIdentity(c)
	link, _ := ident.Link(provider)
	respondOK(c, http.StatusOK, "Provider linked.", gin.H{
		"provider": provider,
		"id":       link.UserID,
	})
}

func (h *AuthHandler) issueTokens(c *gin.Context, ident *identity.Identity) (gin.H, error) {
	refresh, err := h.sessions.CreateSession(c.Request.Context(), ident.ID, h.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		return nil, err
	}
	access, err := tokens.GenerateAccessToken(h.cfg, ident, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		logger.Errorf("failed to create access token: %v", err)
		return nil, err
	}
	return gin.H{
		"user":         ident,
		"accessToken":  access,
		"refreshToken": refresh,
		"expiresIn":    int(h.cfg.JWT.AccessTokenTTL.Seconds()),
	}, nil
}

func (h *AuthHandler) authFailure(c *gin.Context, flow string, err error) {
	switch {
	case errors.Is(err, identity.ErrValidation):
		metrics.AuthAttempts.WithLabelValues(flow, "validation_failed").Inc()
		respondErr(c, http.StatusForbidden, identity.ValidationMessage(err))
	case errors.Is(err, identity.ErrEmailTaken):
		metrics.AuthAttempts.WithLabelValues(flow, "email_taken").Inc()
		respondErr(c, http.StatusConflict, "That email address is taken.")
	case errors.Is(err, identity.ErrNoSuchUser):
		metrics.AuthAttempts.WithLabelValues(flow, "no_such_user").Inc()
		respondErr(c, http.StatusUnauthorized, "No account with that email address exists.")
	case errors.Is(err, identity.ErrNoPasswordSet):
		metrics.AuthAttempts.WithLabelValues(flow, "no_password").Inc()
		respondErr(c, http.StatusUnauthorized, "This account has no local password. Sign in with your social provider.")
	case errors.Is(err, identity.ErrInvalidCredentials):
		metrics.AuthAttempts.WithLabelValues(flow, "invalid_credentials").Inc()
		respondErr(c, http.StatusUnauthorized, "Wrong email or password.")
	default:
		metrics.AuthAttempts.WithLabelValues(flow, "error").Inc()
		logger.Errorf("%s failed: %v", flow, err)
		respondErr(c, http.StatusInternalServerError, "Authentication failed.")
	}
}

// parseExpFromJWT decodes the JWT payload and returns the `exp` claim as time.Time.
// Payload-only parsing is enough for computing remaining blacklist TTLs.
func parseExpFromJWT(tok string) (time.Time, error) {
	parts := strings.Split(tok, ".")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid token")
	}
	b, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		b, err = base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			return time.Time{}, err
		}
	}
	var claims map[string]interface{}
	if err := json.Unmarshal(b, &claims); err != nil {
		return time.Time{}, err
	}
	v, ok := claims["exp"]
	if !ok {
		return time.Time{}, fmt.Errorf("exp claim not present")
	}
	switch vv := v.(type) {
	case float64:
		return time.Unix(int64(vv), 0), nil
	case json.Number:
		i64, err := vv.Int64()
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(i64, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported exp type %T", v)
	}
}
