package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chitly/chit/internal/identity"
	"github.com/chitly/chit/pkg/logger"
	"github.com/chitly/chit/pkg/middleware"
)

// UsersHandler serves the user directory and the current-identity endpoint.
type UsersHandler struct {
	ids *identity.Service
}

func NewUsersHandler(ids *identity.Service) *UsersHandler {
	return &UsersHandler{ids: ids}
}

func (h *UsersHandler) Register(rg *gin.RouterGroup, ver middleware.Verifier, load gin.HandlerFunc) {
	auth := []gin.HandlerFunc{middleware.AuthMiddleware(ver), load}
	rg.GET("/me", append(auth, h.Me)...)
	u := rg.Group("/users", auth...)
	u.GET("", h.List)
	u.GET("/search/:query", h.Search)
}

func (h *UsersHandler) Me(c *gin.Context) {
	respondOK(c, http.StatusOK, "Current user.", CurrentIdentity(c))
}

func (h *UsersHandler) List(c *gin.Context) {
	idents, err := h.ids.Store().List(c.Request.Context())
	if err != nil {
		logger.Errorf("user list failed: %v", err)
		respondErr(c, http.StatusInternalServerError, "User lookup failed.")
		return
	}
	respondOK(c, http.StatusOK, "Users listed.", idents)
}

func (h *UsersHandler) Search(c *gin.Context) {
	idents, err := h.ids.Store().Search(c.Request.Context(), c.Param("query"))
	if err != nil {
		logger.Errorf("user search failed: %v", err)
		respondErr(c, http.StatusInternalServerError, "User lookup failed.")
		return
	}
	respondOK(c, http.StatusOK, "Users found.", idents)
}
