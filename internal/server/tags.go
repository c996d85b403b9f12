package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskapi/internal/models"
	"taskapi/internal/validation"
)

type tagRequest struct {
	Name  string         `json:"name"`
	Color optionalString `json:"color"`
}

// handleListTags returns every tag ordered by name.
func (s *Server) handleListTags(c *gin.Context) {
	tags, err := s.store.ListTags(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tags": tags})
}

// handleCreateTag creates a tag; an absent color falls back to the default.
func (s *Server) handleCreateTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	color, err := req.Color.resolve(validation.EntityTag, "color")
	if err != nil {
		s.fail(c, err)
		return
	}
	tag, err := s.store.CreateTag(c.Request.Context(), models.Tag{Name: req.Name, Color: color})
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"tag": tag})
}

// handleGetTag returns a single tag by id.
func (s *Server) handleGetTag(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	tag, err := s.store.GetTag(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tag": tag})
}

// handleUpdateTag renames or recolors an existing tag.
func (s *Server) handleUpdateTag(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	changes, err := bindChanges(c)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	tag, err := s.store.UpdateTag(c.Request.Context(), id, changes)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tag": tag})
}

// handleDeleteTag removes a tag; tasks that carried it are kept.
func (s *Server) handleDeleteTag(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteTag(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
