package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskapi/internal/metrics"
	"taskapi/internal/models"
)

type userRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// handleListUsers returns every user.
func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.store.ListUsers(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"users": users})
}

// handleCreateUser registers a new user.
func (s *Server) handleCreateUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := s.store.CreateUser(c.Request.Context(), models.User{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"user": user})
}

// handleGetUser returns a single user by id.
func (s *Server) handleGetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := s.store.GetUser(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user})
}

// handleUpdateUser changes only the fields present in the body.
func (s *Server) handleUpdateUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	changes, err := bindChanges(c)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	user, err := s.store.UpdateUser(c.Request.Context(), id, changes)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user})
}

// handleDeleteUser removes a user together with their projects and tasks.
func (s *Server) handleDeleteUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteUser(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleListUserTasks lists a user's tasks, optionally by status.
func (s *Server) handleListUserTasks(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := s.store.GetUser(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	tasks, err := s.store.ListTasks(c.Request.Context(), metrics.TaskFilter{
		UserID: id,
		Status: models.TaskStatus(c.Query("status")),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleListUserProjects lists a user's projects, optionally by status.
func (s *Server) handleListUserProjects(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := s.store.GetUser(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	projects, err := s.store.ListProjects(c.Request.Context(), metrics.ProjectFilter{
		UserID: id,
		Status: models.ProjectStatus(c.Query("status")),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects})
}

// handleUserStats reports completion rate, active projects and overdue tasks.
func (s *Server) handleUserStats(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := s.store.GetUser(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	summary, err := metrics.UserSummary(c.Request.Context(), s.store, user, s.store.Now())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"stats": summary})
}

// handleUserCompletionRate reports the share of a user's tasks that are completed.
func (s *Server) handleUserCompletionRate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := s.store.GetUser(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	rate, err := metrics.UserCompletionRate(c.Request.Context(), s.store, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"userId": id, "completionRate": rate})
}

// handleUserActiveProjects counts a user's projects in the active state.
func (s *Server) handleUserActiveProjects(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := s.store.GetUser(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	n, err := metrics.UserActiveProjects(c.Request.Context(), s.store, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"userId": id, "activeProjects": n})
}
