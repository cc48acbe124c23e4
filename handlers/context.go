package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chitly/chit/internal/identity"
	"github.com/chitly/chit/pkg/logger"
	"github.com/chitly/chit/pkg/middleware"
)

const identityKey = "identity"

// IdentityLoader resolves the verified token subject into a full identity
// record. It runs after the auth middleware; requests without claims pass
// through untouched so it composes with OptionalAuthMiddleware.
func IdentityLoader(store identity.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, ok := middleware.SubjectFromContext(c)
		if !ok {
			c.Next()
			return
		}
		ident, err := store.FindByID(c.Request.Context(), sub)
		if err != nil {
			logger.Errorf("identity load failed for sub=%s: %v", sub, err)
			abortErr(c, http.StatusInternalServerError, "Identity lookup failed.")
			return
		}
		if ident == nil {
			abortErr(c, http.StatusUnauthorized, "Account no longer exists.")
			return
		}
		c.Set(identityKey, ident)
		c.Next()
	}
}

// CurrentIdentity returns the identity loaded for this request, if any.
func CurrentIdentity(c *gin.Context) *identity.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	ident, _ := v.(*identity.Identity)
	return ident
}

// RequireProviderLink gates provider-scoped routes. An identity without a
// link for the :provider param is redirected into that provider's consent
// flow instead of receiving an error.
func RequireProviderLink(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := c.Param("provider")
		ident := CurrentIdentity(c)
		if !svc.AuthorizedForProvider(ident, provider) {
			c.Redirect(http.StatusFound, "/api/auth/"+provider)
			c.Abort()
			return
		}
		c.Next()
	}
}
