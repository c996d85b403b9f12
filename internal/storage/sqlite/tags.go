package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskapi/internal/events"
	"taskapi/internal/models"
	"taskapi/internal/validation"
)

const tagColumns = `id, name, color, created_at, updated_at`

var tagFieldColumns = map[string]string{
	"name":  "name",
	"color": "color",
}

func scanTag(row scanner) (models.Tag, error) {
	var t models.Tag
	err := row.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tagColumns+` FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// CreateTag persists a new tag, using the default color when none is given.
func (s *Store) CreateTag(ctx context.Context, t models.Tag) (models.Tag, error) {
	if t.Color == "" {
		t.Color = models.DefaultTagColor
	}
	if err := validation.ValidateTag(t); err != nil {
		return models.Tag{}, err
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO tags(name, color) VALUES(?, ?)`, t.Name, t.Color)
	if err != nil {
		return models.Tag{}, fmt.Errorf("insert tag: %w", translate(err, "name"))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Tag{}, fmt.Errorf("tag id: %w", err)
	}
	s.emit(ctx, events.Created, validation.EntityTag, id)
	return s.GetTag(ctx, id)
}

// GetTag retrieves a tag by id.
func (s *Store) GetTag(ctx context.Context, id int64) (models.Tag, error) {
	t, err := scanTag(s.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Tag{}, fmt.Errorf("tag %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Tag{}, fmt.Errorf("get tag: %w", err)
	}
	return t, nil
}

// UpdateTag renames or recolors a tag.
func (s *Store) UpdateTag(ctx context.Context, id int64, changes map[string]any) (models.Tag, error) {
	current, err := s.GetTag(ctx, id)
	if err != nil {
		return models.Tag{}, err
	}

	updated, err := s.patch(ctx, "tags", validation.EntityTag, id, tagFieldColumns, changes, validation.TagFields(current))
	if err != nil {
		return models.Tag{}, err
	}
	if !updated {
		return current, nil
	}
	s.emit(ctx, events.Updated, validation.EntityTag, id)
	return s.GetTag(ctx, id)
}

// DeleteTag removes a tag and its task links. Tasks are kept.
func (s *Store) DeleteTag(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "tags", validation.EntityTag, id)
}
