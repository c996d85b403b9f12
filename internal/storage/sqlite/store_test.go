package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskapi/internal/events"
	"taskapi/internal/metrics"
	"taskapi/internal/models"
	"taskapi/internal/validation"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) (*Store, *events.Recorder) {
	t.Helper()
	rec := &events.Recorder{}
	store, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"), nil,
		WithSink(rec),
		WithClock(func() time.Time { return testNow }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, rec
}

func seedUser(t *testing.T, s *Store, username string) models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), models.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "Secret1!x",
		FirstName: "Test",
		LastName:  "User",
	})
	require.NoError(t, err)
	return u
}

func seedProject(t *testing.T, s *Store, userID int64, name string, status models.ProjectStatus) models.Project {
	t.Helper()
	p, err := s.CreateProject(context.Background(), models.Project{Name: name, Status: status, UserID: userID})
	require.NoError(t, err)
	return p
}

func seedTask(t *testing.T, s *Store, userID, projectID int64, title string, status models.TaskStatus) models.Task {
	t.Helper()
	task, err := s.CreateTask(context.Background(), models.Task{
		Title:     title,
		Status:    status,
		DueDate:   testNow.Add(48 * time.Hour),
		UserID:    userID,
		ProjectID: projectID,
	})
	require.NoError(t, err)
	return task
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("", nil)
	assert.Error(t, err)
}

func TestCreateUserNormalizesEmail(t *testing.T) {
	s, rec := openTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, models.User{
		Username:  "bob",
		Email:     "Bob@Bob.COM",
		Password:  "Secret1!x",
		FirstName: "Bob",
		LastName:  "Builder",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob@bob.com", u.Email)
	assert.NotZero(t, u.ID)

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@bob.com", got.Email)
	assert.Equal(t, "Secret1!x", got.Password)

	require.Len(t, rec.Events(), 1)
	assert.Equal(t, events.Event{Action: events.Created, Entity: "user", ID: u.ID, At: testNow}, rec.Events()[0])
}

func TestCreateUserValidation(t *testing.T) {
	s, rec := openTestStore(t)
	_, err := s.CreateUser(context.Background(), models.User{
		Username: "aa", Email: "a@b.co", Password: "Secret1!x", FirstName: "Al", LastName: "Bo",
	})
	assert.True(t, validation.IsKind(err, validation.InvalidFormat))
	assert.Empty(t, rec.Events())

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUniqueConstraintsReportConflict(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "alice")

	_, err := s.CreateUser(ctx, models.User{
		Username: "alice", Email: "other@example.com", Password: "Secret1!x", FirstName: "Al", LastName: "Ice",
	})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, validation.Conflict, verr.Kind)
	assert.Equal(t, "username", verr.Field)

	_, err = s.CreateUser(ctx, models.User{
		Username: "alice2", Email: "ALICE@example.com", Password: "Secret1!x", FirstName: "Al", LastName: "Ice",
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, validation.Conflict, verr.Kind)
	assert.Equal(t, "email", verr.Field)

	_, err = s.CreateTag(ctx, models.Tag{Name: "urgent"})
	require.NoError(t, err)
	_, err = s.CreateTag(ctx, models.Tag{Name: "urgent"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, validation.Conflict, verr.Kind)
	assert.Equal(t, "name", verr.Field)
}

func TestUpdateUserRunsOnlyChangedValidators(t *testing.T) {
	s, rec := openTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "carol")

	updated, err := s.UpdateUser(ctx, u.ID, map[string]any{"email": "Carol@New.org", "id": 99})
	require.NoError(t, err)
	assert.Equal(t, "carol@new.org", updated.Email)
	assert.Equal(t, u.ID, updated.ID)

	_, err = s.UpdateUser(ctx, u.ID, map[string]any{"password": "weakpass"})
	assert.True(t, validation.IsKind(err, validation.InvalidFormat))

	same, err := s.UpdateUser(ctx, u.ID, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "carol@new.org", same.Email)

	_, err = s.UpdateUser(ctx, 999, map[string]any{"firstName": "Zed"})
	assert.ErrorIs(t, err, ErrNotFound)

	// create + one successful update
	assert.Len(t, rec.Events(), 2)
}

func TestProjectDefaultsAndDates(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "dave")

	p, err := s.CreateProject(ctx, models.Project{Name: "Apollo", UserID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectActive, p.Status)
	assert.True(t, p.StartDate.Equal(testNow), "start date %v", p.StartDate)
	assert.Nil(t, p.EndDate)

	end := testNow
	_, err = s.CreateProject(ctx, models.Project{Name: "Gemini", UserID: u.ID, StartDate: testNow, EndDate: &end})
	assert.True(t, validation.IsKind(err, validation.OutOfRange))

	end = testNow.Add(time.Hour)
	g, err := s.CreateProject(ctx, models.Project{Name: "Gemini", UserID: u.ID, StartDate: testNow, EndDate: &end})
	require.NoError(t, err)
	require.NotNil(t, g.EndDate)
	assert.True(t, g.EndDate.Equal(end))

	_, err = s.UpdateProject(ctx, g.ID, map[string]any{"endDate": testNow.Add(-time.Hour)})
	assert.True(t, validation.IsKind(err, validation.OutOfRange))

	g, err = s.UpdateProject(ctx, g.ID, map[string]any{"status": "completed", "endDate": nil})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectCompleted, g.Status)
	assert.Nil(t, g.EndDate)

	_, err = s.UpdateProject(ctx, g.ID, map[string]any{"status": nil})
	assert.True(t, validation.IsKind(err, validation.InvalidEnum))
}

func TestCreateProjectRequiresExistingOwner(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.CreateProject(context.Background(), models.Project{Name: "Orphan", UserID: 42})
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestTaskDefaultsAndDueDate(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "erin")
	p := seedProject(t, s, u.ID, "Apollo", models.ProjectActive)

	task, err := s.CreateTask(ctx, models.Task{
		Title: "Launch", DueDate: testNow.Add(time.Hour), UserID: u.ID, ProjectID: p.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskPending, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)

	_, err = s.CreateTask(ctx, models.Task{
		Title: "Late", DueDate: testNow, UserID: u.ID, ProjectID: p.ID,
	})
	assert.True(t, validation.IsKind(err, validation.OutOfRange))

	_, err = s.CreateTask(ctx, models.Task{
		Title: "Weird", Status: "done", DueDate: testNow.Add(time.Hour), UserID: u.ID, ProjectID: p.ID,
	})
	assert.True(t, validation.IsKind(err, validation.InvalidEnum))

	updated, err := s.UpdateTask(ctx, task.ID, map[string]any{"status": "in_progress", "description": nil})
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, updated.Status)
	assert.Equal(t, "", updated.Description)

	_, err = s.UpdateTask(ctx, task.ID, map[string]any{"priority": "urgent"})
	assert.True(t, validation.IsKind(err, validation.InvalidEnum))
}

func TestListTasksFilters(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	u1 := seedUser(t, s, "frank")
	u2 := seedUser(t, s, "grace")
	p1 := seedProject(t, s, u1.ID, "Apollo", models.ProjectActive)
	p2 := seedProject(t, s, u2.ID, "Gemini", models.ProjectActive)

	a := seedTask(t, s, u1.ID, p1.ID, "Task A", models.TaskCompleted)
	b := seedTask(t, s, u1.ID, p1.ID, "Task B", models.TaskPending)
	c := seedTask(t, s, u2.ID, p2.ID, "Task C", models.TaskPending)

	ignore := cmpopts.IgnoreFields(models.Task{}, "CreatedAt", "UpdatedAt")

	got, err := s.ListTasks(ctx, metrics.TaskFilter{UserID: u1.ID})
	require.NoError(t, err)
	if diff := cmp.Diff([]models.Task{a, b}, got, ignore); diff != "" {
		t.Errorf("user tasks mismatch (-want +got):\n%s", diff)
	}

	got, err = s.ListTasks(ctx, metrics.TaskFilter{ProjectID: p2.ID})
	require.NoError(t, err)
	if diff := cmp.Diff([]models.Task{c}, got, ignore); diff != "" {
		t.Errorf("project tasks mismatch (-want +got):\n%s", diff)
	}

	got, err = s.ListTasks(ctx, metrics.TaskFilter{Status: models.TaskPending})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	projects, err := s.ListProjects(ctx, metrics.ProjectFilter{UserID: u2.ID})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, p2.ID, projects[0].ID)
}

func TestStoreServesMetrics(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "heidi")
	p1 := seedProject(t, s, u.ID, "Apollo", models.ProjectActive)
	p2 := seedProject(t, s, u.ID, "Gemini", models.ProjectCompleted)

	seedTask(t, s, u.ID, p1.ID, "Task A", models.TaskCompleted)
	seedTask(t, s, u.ID, p1.ID, "Task B", models.TaskPending)
	seedTask(t, s, u.ID, p2.ID, "Task C", models.TaskPending)

	rate, err := metrics.ProjectCompletionRate(ctx, s, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, "50%", rate)

	active, err := metrics.UserActiveProjects(ctx, s, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, active)

	rate, err = metrics.UserCompletionRate(ctx, s, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "33.33%", rate)
}

func TestDeleteUserCascades(t *testing.T) {
	s, rec := openTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "ivan")
	other := seedUser(t, s, "judy")
	p := seedProject(t, s, u.ID, "Apollo", models.ProjectActive)
	op := seedProject(t, s, other.ID, "Gemini", models.ProjectActive)
	seedTask(t, s, u.ID, p.ID, "Task A", models.TaskPending)
	seedTask(t, s, u.ID, p.ID, "Task B", models.TaskPending)
	kept := seedTask(t, s, other.ID, op.ID, "Task C", models.TaskPending)

	require.NoError(t, s.DeleteUser(ctx, u.ID))

	tasks, err := s.ListTasks(ctx, metrics.TaskFilter{UserID: u.ID})
	require.NoError(t, err)
	assert.Empty(t, tasks)

	_, err = s.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetTask(ctx, kept.ID)
	assert.NoError(t, err)

	last := rec.Events()[len(rec.Events())-1]
	assert.Equal(t, events.Deleted, last.Action)
	assert.Equal(t, "user", last.Entity)

	assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), ErrNotFound)
}

func TestDeleteProjectCascadesToTasksOnly(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "kim")
	p := seedProject(t, s, u.ID, "Apollo", models.ProjectActive)
	task := seedTask(t, s, u.ID, p.ID, "Task A", models.TaskPending)

	tag, err := s.CreateTag(ctx, models.Tag{Name: "urgent"})
	require.NoError(t, err)
	_, err = s.AttachTag(ctx, task.ID, tag.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteProject(ctx, p.ID))

	_, err = s.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetTag(ctx, tag.ID)
	assert.NoError(t, err)

	_, err = s.GetUser(ctx, u.ID)
	assert.NoError(t, err)
}

func TestTagsOnTasks(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "leo")
	p := seedProject(t, s, u.ID, "Apollo", models.ProjectActive)
	task := seedTask(t, s, u.ID, p.ID, "Task A", models.TaskPending)

	tag, err := s.CreateTag(ctx, models.Tag{Name: "urgent"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultTagColor, tag.Color)

	blue, err := s.CreateTag(ctx, models.Tag{Name: "blue", Color: "#00F"})
	require.NoError(t, err)

	_, err = s.CreateTag(ctx, models.Tag{Name: "bad", Color: "blue"})
	assert.True(t, validation.IsKind(err, validation.InvalidFormat))

	_, err = s.AttachTag(ctx, task.ID, tag.ID)
	require.NoError(t, err)
	_, err = s.AttachTag(ctx, task.ID, tag.ID)
	require.NoError(t, err)
	got, err := s.AttachTag(ctx, task.ID, blue.ID)
	require.NoError(t, err)
	require.Len(t, got.Tags, 2)
	assert.Equal(t, "blue", got.Tags[0].Name)

	_, err = s.AttachTag(ctx, task.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteTag(ctx, blue.ID))
	got, err = s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)

	got, err = s.DetachTag(ctx, task.ID, tag.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
	_, err = s.DetachTag(ctx, task.ID, tag.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteTask(ctx, task.ID))
	_, err = s.GetTag(ctx, tag.ID)
	assert.NoError(t, err)

	renamed, err := s.UpdateTag(ctx, tag.ID, map[string]any{"color": "#ABCDEF"})
	require.NoError(t, err)
	assert.Equal(t, "#ABCDEF", renamed.Color)

	_, err = s.UpdateTag(ctx, tag.ID, map[string]any{"color": nil})
	assert.True(t, validation.IsKind(err, validation.InvalidFormat))
}

func TestUniqueField(t *testing.T) {
	assert.Equal(t, "email", uniqueField("UNIQUE constraint failed: users.email", "x"))
	assert.Equal(t, "name", uniqueField("UNIQUE constraint failed: tags.name", "x"))
	assert.Equal(t, "x", uniqueField("constraint failed", "x"))
}
