// Package metrics derives read-only percentages and counts from records
// that have already been fetched. Nothing here mutates its input.
package metrics

import (
	"math"
	"strconv"
	"time"

	"taskapi/internal/models"
)

// TaskCompletionRate returns the share of completed tasks as "<n>%".
// An empty slice yields "0%".
func TaskCompletionRate(tasks []models.Task) string {
	if len(tasks) == 0 {
		return "0%"
	}
	completed := 0
	for _, t := range tasks {
		if t.Status == models.TaskCompleted {
			completed++
		}
	}
	return FormatPercent(float64(completed) / float64(len(tasks)) * 100)
}

// ProjectProgress is TaskCompletionRate over the tasks of one project.
// Tasks belonging to other projects are ignored.
func ProjectProgress(projectID int64, tasks []models.Task) string {
	scoped := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ProjectID == projectID {
			scoped = append(scoped, t)
		}
	}
	return TaskCompletionRate(scoped)
}

// TaskProgress maps a task status to a fixed percentage.
func TaskProgress(task models.Task) string {
	switch task.Status {
	case models.TaskCompleted:
		return "100%"
	case models.TaskInProgress:
		return "50%"
	default:
		return "0%"
	}
}

// ActiveProjectsCount counts projects whose status is active.
func ActiveProjectsCount(projects []models.Project) int {
	n := 0
	for _, p := range projects {
		if p.Status == models.ProjectActive {
			n++
		}
	}
	return n
}

// IsOverdue reports whether an unfinished task is past its due date.
func IsOverdue(task models.Task, now time.Time) bool {
	if task.Status == models.TaskCompleted {
		return false
	}
	return now.After(task.DueDate)
}

// OverdueCount counts the tasks IsOverdue reports at now.
func OverdueCount(tasks []models.Task, now time.Time) int {
	n := 0
	for _, t := range tasks {
		if IsOverdue(t, now) {
			n++
		}
	}
	return n
}

// FullName joins first and last name with one space.
func FullName(user models.User) string {
	return user.FullName()
}

// FormatPercent rounds half away from zero to two decimals and drops
// trailing zeros: 50 -> "50%", 100/3 -> "33.33%".
func FormatPercent(v float64) string {
	rounded := math.Round(v*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + "%"
}
