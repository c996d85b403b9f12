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

const projectColumns = `id, name, description, status, start_date, end_date, user_id, created_at, updated_at`

var projectFieldColumns = map[string]string{
	"name":        "name",
	"description": "description",
	"status":      "status",
	"startDate":   "start_date",
	"endDate":     "end_date",
}

func scanProject(row scanner) (models.Project, error) {
	var (
		p   models.Project
		end sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.StartDate, &end, &p.UserID, &p.CreatedAt, &p.UpdatedAt)
	p.EndDate = timePtr(end)
	return p, err
}

// ListProjects retrieves projects matching the filter ordered by creation date.
func (s *Store) ListProjects(ctx context.Context, filter metrics.ProjectFilter) ([]models.Project, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + projectColumns + ` FROM projects`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CreateProject persists a new project. Status defaults to active and the
// start date to the current time.
func (s *Store) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	if p.Status == "" {
		p.Status = models.ProjectActive
	}
	if p.StartDate.IsZero() {
		p.StartDate = s.now()
	}
	if err := validation.ValidateProject(p); err != nil {
		return models.Project{}, err
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO projects(name, description, status, start_date, end_date, user_id) VALUES(?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, string(p.Status), p.StartDate.UTC(), nullableTime(p.EndDate), p.UserID)
	if err != nil {
		return models.Project{}, fmt.Errorf("insert project: %w", translate(err, "name"))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Project{}, fmt.Errorf("project id: %w", err)
	}
	s.emit(ctx, events.Created, validation.EntityProject, id)
	return s.GetProject(ctx, id)
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// UpdateProject applies the given field changes. Changing endDate is
// checked against the new or stored startDate.
func (s *Store) UpdateProject(ctx context.Context, id int64, changes map[string]any) (models.Project, error) {
	current, err := s.GetProject(ctx, id)
	if err != nil {
		return models.Project{}, err
	}

	changes = copyChanges(changes)
	if v, ok := changes["description"]; ok && v == nil {
		changes["description"] = ""
	}

	updated, err := s.patch(ctx, "projects", validation.EntityProject, id, projectFieldColumns, changes, validation.ProjectFields(current))
	if err != nil {
		return models.Project{}, err
	}
	if !updated {
		return current, nil
	}
	s.emit(ctx, events.Updated, validation.EntityProject, id)
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project along with its tasks.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "projects", validation.EntityProject, id)
}
