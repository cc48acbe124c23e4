package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chitly/chit/internal/notes"
	"github.com/chitly/chit/internal/storage"
	"github.com/chitly/chit/pkg/logger"
	"github.com/chitly/chit/pkg/middleware"
)

// NotesHandler serves the per-user note CRUD and attachments.
type NotesHandler struct {
	svc   *notes.Service
	store storage.ObjectStore // nil when attachments are not configured
}

func NewNotesHandler(svc *notes.Service, store storage.ObjectStore) *NotesHandler {
	return &NotesHandler{svc: svc, store: store}
}

// Register routes under /notes; every route requires an authenticated identity.
func (h *NotesHandler) Register(rg *gin.RouterGroup, ver middleware.Verifier, load gin.HandlerFunc) {
	n := rg.Group("/notes", middleware.AuthMiddleware(ver), load)
	n.POST("", h.Create)
	n.GET("", h.List)
	n.GET("/:id", h.Get)
	n.PUT("/:id", h.Update)
	n.DELETE("/:id", h.Delete)
	n.PUT("/:id/attachment", h.UploadAttachment)
	n.GET("/:id/attachment", h.AttachmentURL)
}

type createNoteRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type updateNoteRequest struct {
	Title    *string `json:"title"`
	Body     *string `json:"body"`
	Archived *bool   `json:"archived"`
}

func (h *NotesHandler) Create(c *gin.Context) {
	var req createNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, "Invalid request body.")
		return
	}
	n, err := h.svc.Create(c.Request.Context(), CurrentIdentity(c).ID, req.Title, req.Body)
	if err != nil {
		h.noteFailure(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Note created.", n)
}

func (h *NotesHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), CurrentIdentity(c).ID)
	if err != nil {
		h.noteFailure(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Notes listed.", list)
}

func (h *NotesHandler) Get(c *gin.Context) {
	n, err := h.svc.Get(c.Request.Context(), CurrentIdentity(c).ID, c.Param("id"))
	if err != nil {
		h.noteFailure(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Note found.", n)
}

func (h *NotesHandler) Update(c *gin.Context) {
	var req updateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, "Invalid request body.")
		return
	}
	n, err := h.svc.Update(c.Request.Context(), CurrentIdentity(c).ID, c.Param("id"), notes.UpdateRequest{
		Title:    req.Title,
		Body:     req.Body,
		Archived: req.Archived,
	})
	if err != nil {
		h.noteFailure(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Note updated.", n)
}

func (h *NotesHandler) Delete(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), CurrentIdentity(c).ID, c.Param("id")); err != nil {
		h.noteFailure(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Note deleted.", nil)
}

// UploadAttachment streams the request body into object storage and records
// the key on the note.
func (h *NotesHandler) UploadAttachment(c *gin.Context) {
	if h.store == nil {
		respondErr(c, http.StatusServiceUnavailable, "Attachments are not configured.")
		return
	}
	userID := CurrentIdentity(c).ID
	noteID := c.Param("id")

	// confirm ownership before writing anything to storage
	if _, err := h.svc.Get(c.Request.Context(), userID, noteID); err != nil {
		h.noteFailure(c, err)
		return
	}

	contentType := c.GetHeader("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := userID + "/" + noteID
	if err := h.store.Upload(c.Request.Context(), key, c.Request.Body, c.Request.ContentLength, contentType); err != nil {
		logger.Errorf("attachment upload failed: %v", err)
		respondErr(c, http.StatusInternalServerError, "Attachment upload failed.")
		return
	}

	n, err := h.svc.SetAttachmentKey(c.Request.Context(), userID, noteID, key)
	if err != nil {
		h.noteFailure(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Attachment stored.", n)
}

// AttachmentURL returns a short-lived presigned download URL.
func (h *NotesHandler) AttachmentURL(c *gin.Context) {
	if h.store == nil {
		respondErr(c, http.StatusServiceUnavailable, "Attachments are not configured.")
		return
	}
	n, err := h.svc.Get(c.Request.Context(), CurrentIdentity(c).ID, c.Param("id"))
	if err != nil {
		h.noteFailure(c, err)
		return
	}
	if n.AttachmentKey == "" {
		respondErr(c, http.StatusNotFound, "Note has no attachment.")
		return
	}
	url, err := h.store.PresignedURL(c.Request.Context(), n.AttachmentKey, 15*time.Minute)
	if err != nil {
		logger.Errorf("presign failed: %v", err)
		respondErr(c, http.StatusInternalServerError, "Failed to create download URL.")
		return
	}
	respondOK(c, http.StatusOK, "Attachment URL created.", gin.H{"url": url})
}

func (h *NotesHandler) noteFailure(c *gin.Context, err error) {
	switch {
	case errors.Is(err, notes.ErrNotFound):
		respondErr(c, http.StatusNotFound, "No note found.")
	case errors.Is(err, notes.ErrBodyRequired):
		respondErr(c, http.StatusForbidden, "Note body is required.")
	default:
		logger.Errorf("note operation failed: %v", err)
		respondErr(c, http.StatusInternalServerError, "Note operation failed.")
	}
}
