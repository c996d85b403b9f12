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

const userColumns = `id, username, email, password, first_name, last_name, created_at, updated_at`

var userFieldColumns = map[string]string{
	"username":  "username",
	"email":     "email",
	"password":  "password",
	"firstName": "first_name",
	"lastName":  "last_name",
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// ListUsers retrieves all users ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateUser validates and persists a new user. The email is stored lower-cased.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	u.Email = validation.NormalizeEmail(u.Email)
	if err := validation.ValidateUser(u); err != nil {
		return models.User{}, err
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO users(username, email, password, first_name, last_name) VALUES(?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.Password, u.FirstName, u.LastName)
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", translate(err, "username"))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("user id: %w", err)
	}
	s.emit(ctx, events.Created, validation.EntityUser, id)
	return s.GetUser(ctx, id)
}

// GetUser fetches a single user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpdateUser applies the given field changes. Only validators of the
// changed fields run.
func (s *Store) UpdateUser(ctx context.Context, id int64, changes map[string]any) (models.User, error) {
	current, err := s.GetUser(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	changes = copyChanges(changes)
	if v, ok := changes["email"].(string); ok {
		changes["email"] = validation.NormalizeEmail(v)
	}

	updated, err := s.patch(ctx, "users", validation.EntityUser, id, userFieldColumns, changes, validation.UserFields(current))
	if err != nil {
		return models.User{}, err
	}
	if !updated {
		return current, nil
	}
	s.emit(ctx, events.Updated, validation.EntityUser, id)
	return s.GetUser(ctx, id)
}

// DeleteUser removes a user. Their projects and tasks go with them.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "users", validation.EntityUser, id)
}

func (s *Store) deleteByID(ctx context.Context, table string, entity validation.Entity, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	s.emit(ctx, events.Deleted, entity, id)
	return nil
}

func copyChanges(changes map[string]any) map[string]any {
	out := make(map[string]any, len(changes))
	for k, v := range changes {
		out[k] = v
	}
	return out
}
