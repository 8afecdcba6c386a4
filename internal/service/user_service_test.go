package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/azs-pg/ilawa-courses-api/internal/models"
	appErrors "github.com/azs-pg/ilawa-courses-api/pkg/errors"
)

func (m *mockRegistrationRepo) ListByUser(ctx context.Context, userID string) ([]models.RegistrationForm, error) {
	var out []models.RegistrationForm
	for key, form := range m.forms {
		if key.userID == userID {
			out = append(out, *form)
		}
	}
	return out, nil
}

type mockProfileRepo struct {
	mockUserReader
	updated []*models.User
}

func (m *mockProfileRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, user := range m.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		out = append(out, *user)
	}
	return out, len(out), nil
}

func (m *mockProfileRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *user
	m.users[user.ID] = &cp
	m.updated = append(m.updated, &cp)
	return nil
}

type mockExporter struct {
	rendered int
}

func (m *mockExporter) RegistrationSummary(course *models.Course, form *models.RegistrationForm) ([]byte, error) {
	m.rendered++
	return []byte("%PDF-1.3 stub"), nil
}

func TestUserServiceProfile(t *testing.T) {
	users := &mockProfileRepo{mockUserReader: mockUserReader{users: map[string]*models.User{
		"u1": {ID: "u1", Username: "jane"},
	}}}
	svc := NewUserService(users, &mockRegistrationRepo{}, &mockCourseRoster{}, &mockExporter{}, validator.New(), zap.NewNop())

	user, err := svc.Profile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "jane", user.Username)

	_, err = svc.Profile(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdateProfile(t *testing.T) {
	users := &mockProfileRepo{mockUserReader: mockUserReader{users: map[string]*models.User{
		"u1": {ID: "u1", Username: "jane", Email: "jane@example.com", Role: models.RoleInstructor},
	}}}
	svc := NewUserService(users, &mockRegistrationRepo{}, &mockCourseRoster{}, &mockExporter{}, validator.New(), zap.NewNop())

	user, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileRequest{
		Username:       "jane",
		Email:          "jane@example.com",
		Qualifications: "PZŻ Sailing Instructor",
		SailingRank:    "Yacht Captain",
		CoursesInIlawa: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, "PZŻ Sailing Instructor", user.Qualifications)
	assert.Equal(t, 4, user.CoursesInIlawa)
	require.Len(t, users.updated, 1)
}

func TestUserServiceUpdateProfileRejectsNegativeCounts(t *testing.T) {
	users := &mockProfileRepo{mockUserReader: mockUserReader{users: map[string]*models.User{
		"u1": {ID: "u1"},
	}}}
	svc := NewUserService(users, &mockRegistrationRepo{}, &mockCourseRoster{}, &mockExporter{}, validator.New(), zap.NewNop())

	_, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileRequest{
		Username:       "jane",
		Email:          "jane@example.com",
		CoursesInIlawa: -1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceListFiltersByRole(t *testing.T) {
	instructor := models.RoleInstructor
	users := &mockProfileRepo{mockUserReader: mockUserReader{users: map[string]*models.User{
		"u1": {ID: "u1", Role: models.RoleStudent},
		"i1": {ID: "i1", Role: models.RoleInstructor},
	}}}
	svc := NewUserService(users, &mockRegistrationRepo{}, &mockCourseRoster{}, &mockExporter{}, validator.New(), zap.NewNop())

	result, pagination, err := svc.List(context.Background(), models.UserFilter{Role: &instructor})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "i1", result[0].ID)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestUserServiceRegistrationForms(t *testing.T) {
	forms := &mockRegistrationRepo{forms: map[registrationKey]*models.RegistrationForm{
		{"c1", "u1"}: {ID: "f1", CourseID: "c1", UserID: "u1"},
		{"c2", "u1"}: {ID: "f2", CourseID: "c2", UserID: "u1"},
		{"c1", "u2"}: {ID: "f3", CourseID: "c1", UserID: "u2"},
	}}
	users := &mockProfileRepo{mockUserReader: mockUserReader{users: map[string]*models.User{}}}
	svc := NewUserService(users, forms, &mockCourseRoster{}, &mockExporter{}, validator.New(), zap.NewNop())

	result, err := svc.RegistrationForms(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestUserServiceRegistrationSummaryPDF(t *testing.T) {
	forms := &mockRegistrationRepo{forms: map[registrationKey]*models.RegistrationForm{
		{"c1", "u1"}: {ID: "f1", CourseID: "c1", UserID: "u1", Fields: models.FieldSets{{FirstName: "Jane", LastName: "Smith"}}},
	}}
	courses := &mockCourseRoster{courses: map[string]*models.Course{
		"c1": {ID: "c1", Name: "Basic Sailing", Cost: 150},
	}}
	exporter := &mockExporter{}
	users := &mockProfileRepo{mockUserReader: mockUserReader{users: map[string]*models.User{}}}
	svc := NewUserService(users, forms, courses, exporter, validator.New(), zap.NewNop())

	data, err := svc.RegistrationSummaryPDF(context.Background(), "c1", "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, 1, exporter.rendered)
}

func TestUserServiceRegistrationSummaryPDFMissingForm(t *testing.T) {
	users := &mockProfileRepo{mockUserReader: mockUserReader{users: map[string]*models.User{}}}
	svc := NewUserService(users, &mockRegistrationRepo{}, &mockCourseRoster{}, &mockExporter{}, validator.New(), zap.NewNop())

	_, err := svc.RegistrationSummaryPDF(context.Background(), "c1", "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
