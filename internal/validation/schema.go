package validation

import (
	"time"

	"taskapi/internal/models"
)

var defaultRegistry = buildDefault()

// Default returns the registry holding every entity's field rules.
func Default() *Registry {
	return defaultRegistry
}

func buildDefault() *Registry {
	r := NewRegistry()

	r.Register(EntityUser, "username", Length(3, 30, InvalidFormat), NoSpecialChars)
	r.Register(EntityUser, "email", Email)
	r.Register(EntityUser, "password", Length(8, 100, InvalidFormat), PasswordStrength)
	r.Register(EntityUser, "firstName", Length(2, 50, InvalidFormat), NoDigits, NoSpecialChars)
	r.Register(EntityUser, "lastName", Length(2, 50, InvalidFormat), NoDigits, NoSpecialChars)

	r.Register(EntityProject, "name", Length(3, 100, OutOfRange))
	r.Register(EntityProject, "description", Text)
	r.Register(EntityProject, "status", OneOf(models.ProjectStatuses...))
	r.Register(EntityProject, "startDate", Date)
	r.Register(EntityProject, "endDate", After("startDate"))
	r.Register(EntityProject, "userId", Required)

	r.Register(EntityTask, "title", Length(3, 100, OutOfRange))
	r.Register(EntityTask, "description", Text)
	r.Register(EntityTask, "status", OneOf(models.TaskStatuses...))
	r.Register(EntityTask, "dueDate", InFuture)
	r.Register(EntityTask, "priority", OneOf(models.TaskPriorities...))
	r.Register(EntityTask, "userId", Required)
	r.Register(EntityTask, "projectId", Required)

	r.Register(EntityTag, "name", NotBlank(OutOfRange), Length(1, 50, OutOfRange))
	r.Register(EntityTag, "color", HexColor)

	return r
}

// UserFields flattens a user into a candidate field set.
func UserFields(u models.User) Fields {
	return Fields{
		"username":  u.Username,
		"email":     u.Email,
		"password":  u.Password,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
	}
}

// ProjectFields flattens a project into a candidate field set.
func ProjectFields(p models.Project) Fields {
	f := Fields{
		"name":        p.Name,
		"description": p.Description,
		"status":      p.Status,
		"startDate":   p.StartDate,
		"userId":      p.UserID,
	}
	if p.EndDate != nil {
		f["endDate"] = *p.EndDate
	}
	return f
}

// TaskFields flattens a task into a candidate field set.
func TaskFields(t models.Task) Fields {
	return Fields{
		"title":       t.Title,
		"description": t.Description,
		"status":      t.Status,
		"dueDate":     t.DueDate,
		"priority":    t.Priority,
		"userId":      t.UserID,
		"projectId":   t.ProjectID,
	}
}

// TagFields flattens a tag into a candidate field set.
func TagFields(t models.Tag) Fields {
	return Fields{
		"name":  t.Name,
		"color": t.Color,
	}
}

// ValidateUser checks every field of a new user.
func ValidateUser(u models.User) error {
	return defaultRegistry.Validate(EntityUser, UserFields(u), nil, time.Time{})
}

// ValidateProject checks every field of a new project.
func ValidateProject(p models.Project) error {
	return defaultRegistry.Validate(EntityProject, ProjectFields(p), nil, time.Time{})
}

// ValidateTask checks every field of a new task against the given clock.
func ValidateTask(t models.Task, now time.Time) error {
	return defaultRegistry.Validate(EntityTask, TaskFields(t), nil, now)
}

// ValidateTag checks every field of a new tag.
func ValidateTag(t models.Tag) error {
	return defaultRegistry.Validate(EntityTag, TagFields(t), nil, time.Time{})
}
