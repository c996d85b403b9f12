package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskapi/internal/events"
	"taskapi/internal/metrics"
	"taskapi/internal/models"
	"taskapi/internal/validation"
)

const taskColumns = `id, title, description, status, due_date, priority, user_id, project_id, created_at, updated_at`

var taskFieldColumns = map[string]string{
	"title":       "title",
	"description": "description",
	"status":      "status",
	"dueDate":     "due_date",
	"priority":    "priority",
}

func scanTask(row scanner) (models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.DueDate, &t.Priority, &t.UserID, &t.ProjectID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// ListTasks returns tasks matching the filter, each with its tags.
func (s *Store) ListTasks(ctx context.Context, filter metrics.TaskFilter) ([]models.Task, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.ProjectID != 0 {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY due_date ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range tasks {
		tags, err := s.TaskTags(ctx, tasks[i].ID)
		if err != nil {
			return nil, err
		}
		tasks[i].Tags = tags
	}
	return tasks, nil
}

// CreateTask validates and inserts a new task. Status defaults to pending
// and priority to medium; the due date must lie in the future.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	if t.Status == "" {
		t.Status = models.TaskPending
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if err := validation.ValidateTask(t, s.now()); err != nil {
		return models.Task{}, err
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO tasks(title, description, status, due_date, priority, user_id, project_id) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		t.Title, t.Description, string(t.Status), t.DueDate.UTC(), string(t.Priority), t.UserID, t.ProjectID)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", translate(err, "title"))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, fmt.Errorf("task id: %w", err)
	}
	s.emit(ctx, events.Created, validation.EntityTask, id)
	return s.GetTask(ctx, id)
}

// GetTask retrieves a task by id along with its tags.
func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}

	tags, err := s.TaskTags(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	t.Tags = tags
	return t, nil
}

// UpdateTask applies the given field changes. A new due date must again
// lie in the future.
func (s *Store) UpdateTask(ctx context.Context, id int64, changes map[string]any) (models.Task, error) {
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}

	changes = copyChanges(changes)
	if v, ok := changes["description"]; ok && v == nil {
		changes["description"] = ""
	}

	updated, err := s.patch(ctx, "tasks", validation.EntityTask, id, taskFieldColumns, changes, validation.TaskFields(current))
	if err != nil {
		return models.Task{}, err
	}
	if !updated {
		return current, nil
	}
	s.emit(ctx, events.Updated, validation.EntityTask, id)
	return s.GetTask(ctx, id)
}

// DeleteTask removes a task by id. Its tags are left untouched.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "tasks", validation.EntityTask, id)
}

// TaskTags returns the tags attached to a task ordered by name.
func (s *Store) TaskTags(ctx context.Context, taskID int64) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT t.id, t.name, t.color, t.created_at, t.updated_at
        FROM tags t
        JOIN task_tags tt ON t.id = tt.tag_id
        WHERE tt.task_id = ?
        ORDER BY t.name`, taskID)
	if err != nil {
		return nil, fmt.Errorf("task tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// AttachTag links a tag to a task. Attaching twice is a no-op.
func (s *Store) AttachTag(ctx context.Context, taskID, tagID int64) (models.Task, error) {
	if _, err := s.GetTag(ctx, tagID); err != nil {
		return models.Task{}, err
	}
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return models.Task{}, err
	}

	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO task_tags(task_id, tag_id) VALUES(?, ?)`, taskID, tagID); err != nil {
		return models.Task{}, fmt.Errorf("attach tag: %w", translate(err, "tagId"))
	}
	s.emit(ctx, events.Updated, validation.EntityTask, taskID)
	return s.GetTask(ctx, taskID)
}

// DetachTag unlinks a tag from a task. The tag itself is kept.
func (s *Store) DetachTag(ctx context.Context, taskID, tagID int64) (models.Task, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id = ? AND tag_id = ?`, taskID, tagID)
	if err != nil {
		return models.Task{}, fmt.Errorf("detach tag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Task{}, err
	}
	if affected == 0 {
		return models.Task{}, fmt.Errorf("tag %d on task %d: %w", tagID, taskID, ErrNotFound)
	}
	s.emit(ctx, events.Updated, validation.EntityTask, taskID)
	return s.GetTask(ctx, taskID)
}
