package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskapi/internal/metrics"
	"taskapi/internal/models"
	"taskapi/internal/validation"
)

type projectRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Status      optionalString `json:"status"`
	StartDate   *time.Time     `json:"startDate"`
	EndDate     *time.Time     `json:"endDate"`
	UserID      int64          `json:"userId"`
}

// handleListProjects returns projects, optionally filtered by owner and status.
func (s *Server) handleListProjects(c *gin.Context) {
	userID, ok := queryID(c, "userId")
	if !ok {
		return
	}
	projects, err := s.store.ListProjects(c.Request.Context(), metrics.ProjectFilter{
		UserID: userID,
		Status: models.ProjectStatus(c.Query("status")),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects})
}

// handleCreateProject creates a new project entity.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	status, err := req.Status.resolve(validation.EntityProject, "status")
	if err != nil {
		s.fail(c, err)
		return
	}

	p := models.Project{
		Name:        req.Name,
		Description: req.Description,
		Status:      models.ProjectStatus(status),
		EndDate:     req.EndDate,
		UserID:      req.UserID,
	}
	if req.StartDate != nil {
		p.StartDate = *req.StartDate
	}

	project, err := s.store.CreateProject(c.Request.Context(), p)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

// handleGetProject returns a single project by id.
func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, err := s.store.GetProject(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleUpdateProject changes only the fields present in the body.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	changes, err := bindChanges(c, "startDate", "endDate")
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	project, err := s.store.UpdateProject(c.Request.Context(), id, changes)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleDeleteProject removes a project and all related tasks.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteProject(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleListProjectTasks fetches tasks for a project.
func (s *Server) handleListProjectTasks(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := s.store.GetProject(c.Request.Context(), projectID); err != nil {
		s.fail(c, err)
		return
	}
	tasks, err := s.store.ListTasks(c.Request.Context(), metrics.TaskFilter{
		ProjectID: projectID,
		Status:    models.TaskStatus(c.Query("status")),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleProjectProgress reports the share of completed tasks in a project.
func (s *Server) handleProjectProgress(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := s.store.GetProject(c.Request.Context(), projectID); err != nil {
		s.fail(c, err)
		return
	}
	progress, err := metrics.ProjectCompletionRate(c.Request.Context(), s.store, projectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projectId": projectID, "progress": progress})
}
