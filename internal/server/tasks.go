package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskapi/internal/metrics"
	"taskapi/internal/models"
	"taskapi/internal/validation"
)

type taskRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      optionalString `json:"status"`
	Priority    optionalString `json:"priority"`
	DueDate     *time.Time     `json:"dueDate"`
	UserID      int64          `json:"userId"`
	ProjectID   int64          `json:"projectId"`
}

// task builds the record to create. Absent status and priority stay empty
// so the store fills in the defaults.
func (r taskRequest) task() (models.Task, error) {
	status, err := r.Status.resolve(validation.EntityTask, "status")
	if err != nil {
		return models.Task{}, err
	}
	priority, err := r.Priority.resolve(validation.EntityTask, "priority")
	if err != nil {
		return models.Task{}, err
	}
	t := models.Task{
		Title:       r.Title,
		Description: r.Description,
		Status:      models.TaskStatus(status),
		Priority:    models.TaskPriority(priority),
		UserID:      r.UserID,
		ProjectID:   r.ProjectID,
	}
	if r.DueDate != nil {
		t.DueDate = *r.DueDate
	}
	return t, nil
}

// handleListTasks returns tasks filtered by owner, project and status.
func (s *Server) handleListTasks(c *gin.Context) {
	userID, ok := queryID(c, "userId")
	if !ok {
		return
	}
	projectID, ok := queryID(c, "projectId")
	if !ok {
		return
	}
	tasks, err := s.store.ListTasks(c.Request.Context(), metrics.TaskFilter{
		UserID:    userID,
		ProjectID: projectID,
		Status:    models.TaskStatus(c.Query("status")),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleCreateTask inserts a new task.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	t, err := req.task()
	if err != nil {
		s.fail(c, err)
		return
	}
	s.createTask(c, t)
}

// handleCreateProjectTask inserts a new task into the project in the path.
func (s *Server) handleCreateProjectTask(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	t, err := req.task()
	if err != nil {
		s.fail(c, err)
		return
	}
	t.ProjectID = projectID
	s.createTask(c, t)
}

// createTask stores t and answers with the created record.
func (s *Server) createTask(c *gin.Context, t models.Task) {
	task, err := s.store.CreateTask(c.Request.Context(), t)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleGetTask returns a task together with its tags.
func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	task, err := s.store.GetTask(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleUpdateTask updates task fields such as status or due date.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	changes, err := bindChanges(c, "dueDate")
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	task, err := s.store.UpdateTask(c.Request.Context(), id, changes)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteTask(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleTaskProgress reports the status based progress and overdue flag.
func (s *Server) handleTaskProgress(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	task, err := s.store.GetTask(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"taskId":   task.ID,
		"progress": metrics.TaskProgress(task),
		"overdue":  metrics.IsOverdue(task, s.store.Now()),
	})
}

// handleAttachTag links the tag in the path to the task.
func (s *Server) handleAttachTag(c *gin.Context) {
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}
	tagID, ok := parseID(c, "tagId")
	if !ok {
		return
	}
	task, err := s.store.AttachTag(c.Request.Context(), taskID, tagID)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDetachTag unlinks the tag in the path from the task.
func (s *Server) handleDetachTag(c *gin.Context) {
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}
	tagID, ok := parseID(c, "tagId")
	if !ok {
		return
	}
	task, err := s.store.DetachTag(c.Request.Context(), taskID, tagID)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}
