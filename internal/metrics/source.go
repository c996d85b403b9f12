package metrics

import (
	"context"
	"fmt"
	"time"

	"taskapi/internal/models"
)

// TaskFilter narrows a task fetch. Zero values mean "any".
type TaskFilter struct {
	UserID    int64
	ProjectID int64
	Status    models.TaskStatus
}

// ProjectFilter narrows a project fetch. Zero values mean "any".
type ProjectFilter struct {
	UserID int64
	Status models.ProjectStatus
}

// Source fetches the records the aggregates below are computed from.
type Source interface {
	ListTasks(ctx context.Context, filter TaskFilter) ([]models.Task, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]models.Project, error)
}

// UserCompletionRate computes the completion rate of every task a user owns.
func UserCompletionRate(ctx context.Context, src Source, userID int64) (string, error) {
	tasks, err := src.ListTasks(ctx, TaskFilter{UserID: userID})
	if err != nil {
		return "", fmt.Errorf("user completion rate: %w", err)
	}
	return TaskCompletionRate(tasks), nil
}

// ProjectCompletionRate computes the progress of a single project.
func ProjectCompletionRate(ctx context.Context, src Source, projectID int64) (string, error) {
	tasks, err := src.ListTasks(ctx, TaskFilter{ProjectID: projectID})
	if err != nil {
		return "", fmt.Errorf("project progress: %w", err)
	}
	return ProjectProgress(projectID, tasks), nil
}

// UserActiveProjects counts a user's active projects.
func UserActiveProjects(ctx context.Context, src Source, userID int64) (int, error) {
	projects, err := src.ListProjects(ctx, ProjectFilter{UserID: userID})
	if err != nil {
		return 0, fmt.Errorf("active projects: %w", err)
	}
	return ActiveProjectsCount(projects), nil
}

// Summary collects a user's derived figures.
type Summary struct {
	UserID         int64  `json:"userId"`
	FullName       string `json:"fullName"`
	TaskCount      int    `json:"taskCount"`
	CompletionRate string `json:"completionRate"`
	ActiveProjects int    `json:"activeProjects"`
	OverdueTasks   int    `json:"overdueTasks"`
}

// UserSummary fetches a user's tasks and projects once and derives all
// figures from that snapshot.
func UserSummary(ctx context.Context, src Source, user models.User, now time.Time) (Summary, error) {
	tasks, err := src.ListTasks(ctx, TaskFilter{UserID: user.ID})
	if err != nil {
		return Summary{}, fmt.Errorf("user summary tasks: %w", err)
	}
	projects, err := src.ListProjects(ctx, ProjectFilter{UserID: user.ID})
	if err != nil {
		return Summary{}, fmt.Errorf("user summary projects: %w", err)
	}
	return Summary{
		UserID:         user.ID,
		FullName:       FullName(user),
		TaskCount:      len(tasks),
		CompletionRate: TaskCompletionRate(tasks),
		ActiveProjects: ActiveProjectsCount(projects),
		OverdueTasks:   OverdueCount(tasks, now),
	}, nil
}
