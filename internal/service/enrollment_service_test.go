package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/azs-pg/ilawa-courses-api/internal/models"
	"github.com/azs-pg/ilawa-courses-api/internal/ranking"
	"github.com/azs-pg/ilawa-courses-api/internal/repository"
	appErrors "github.com/azs-pg/ilawa-courses-api/pkg/errors"
)

type registrationKey struct {
	courseID string
	userID   string
}

type mockRegistrationRepo struct {
	forms map[registrationKey]*models.RegistrationForm
}

func (m *mockRegistrationRepo) FindByCourseAndUser(ctx context.Context, courseID, userID string) (*models.RegistrationForm, error) {
	if form, ok := m.forms[registrationKey{courseID, userID}]; ok {
		cp := *form
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRegistrationRepo) Register(ctx context.Context, form *models.RegistrationForm) error {
	if m.forms == nil {
		m.forms = make(map[registrationKey]*models.RegistrationForm)
	}
	key := registrationKey{form.CourseID, form.UserID}
	if _, ok := m.forms[key]; ok {
		return repository.ErrDuplicate
	}
	if form.ID == "" {
		form.ID = "generated"
	}
	cp := *form
	m.forms[key] = &cp
	return nil
}

func (m *mockRegistrationRepo) Unregister(ctx context.Context, courseID, userID string) error {
	key := registrationKey{courseID, userID}
	if _, ok := m.forms[key]; !ok {
		return sql.ErrNoRows
	}
	delete(m.forms, key)
	return nil
}

func (m *mockRegistrationRepo) UpdateFields(ctx context.Context, id string, fields models.FieldSets) error {
	for _, form := range m.forms {
		if form.ID == id {
			form.Fields = fields
			return nil
		}
	}
	return sql.ErrNoRows
}

type mockCourseRoster struct {
	courses     map[string]*models.Course
	instructors map[string]models.User
}

func (m *mockCourseRoster) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := m.courses[id]; ok {
		cp := *course
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRoster) EnrollInstructor(ctx context.Context, courseID, userID string, rank repository.InstructorRanker) ([]string, error) {
	course, ok := m.courses[courseID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if !course.HasInstructor(userID) {
		course.Instructors = append(course.Instructors, userID)
	}
	members := make([]models.User, 0, len(course.Instructors))
	for _, id := range course.Instructors {
		members = append(members, m.instructors[id])
	}
	ordered := rank(members)
	ids := make([]string, len(ordered))
	for i := range ordered {
		ids[i] = ordered[i].ID
	}
	course.Instructors = ids
	return ids, nil
}

type mockUserReader struct {
	users map[string]*models.User
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserReader) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if user, ok := m.users[id]; ok {
			out = append(out, *user)
		}
	}
	return out, nil
}

func validFields() []models.FieldSet {
	return []models.FieldSet{{
		FirstName:   "Jane",
		LastName:    "Smith",
		Pesel:       "90010112345",
		PhoneNumber: "+48123456789",
		Cost:        150,
		Date:        models.NewDate(2026, time.July, 1),
		Email:       "jane@example.com",
	}}
}

func newEnrollmentFixture() (*EnrollmentService, *mockRegistrationRepo, *mockCourseRoster, *mockUserReader) {
	forms := &mockRegistrationRepo{}
	courses := &mockCourseRoster{
		courses: map[string]*models.Course{
			"c1": {ID: "c1", Name: "Basic Sailing", DurationDays: 1},
			"c2": {ID: "c2", Name: "Weekend Regatta", DurationDays: 2},
		},
		instructors: map[string]models.User{},
	}
	users := &mockUserReader{
		users: map[string]*models.User{
			"u1": {ID: "u1", Role: models.RoleStudent},
		},
	}
	svc := NewEnrollmentService(forms, courses, users, ranking.NewEngine(nil, nil), validator.New(), zap.NewNop())
	return svc, forms, courses, users
}

func TestEnrollmentServiceRegister(t *testing.T) {
	svc, forms, _, _ := newEnrollmentFixture()

	form, err := svc.Register(context.Background(), "c1", "u1", RegisterRequest{Fields: validFields()})
	require.NoError(t, err)
	assert.Equal(t, "c1", form.CourseID)
	assert.Equal(t, "u1", form.UserID)
	assert.Len(t, forms.forms, 1)
}

func TestEnrollmentServiceRegisterTwiceConflicts(t *testing.T) {
	svc, forms, _, _ := newEnrollmentFixture()

	_, err := svc.Register(context.Background(), "c1", "u1", RegisterRequest{Fields: validFields()})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "c1", "u1", RegisterRequest{Fields: validFields()})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Len(t, forms.forms, 1)
}

func TestEnrollmentServiceRegisterUnknownCourse(t *testing.T) {
	svc, _, _, _ := newEnrollmentFixture()

	_, err := svc.Register(context.Background(), "missing", "u1", RegisterRequest{Fields: validFields()})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceRegisterUnknownUser(t *testing.T) {
	svc, _, _, _ := newEnrollmentFixture()

	_, err := svc.Register(context.Background(), "c1", "ghost", RegisterRequest{Fields: validFields()})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceRegisterRejectsEmptyFields(t *testing.T) {
	svc, _, _, _ := newEnrollmentFixture()

	_, err := svc.Register(context.Background(), "c1", "u1", RegisterRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceUnregister(t *testing.T) {
	svc, forms, _, _ := newEnrollmentFixture()

	_, err := svc.Register(context.Background(), "c1", "u1", RegisterRequest{Fields: validFields()})
	require.NoError(t, err)

	require.NoError(t, svc.Unregister(context.Background(), "c1", "u1"))
	assert.Empty(t, forms.forms)
}

func TestEnrollmentServiceUnregisterWithoutRegistration(t *testing.T) {
	svc, _, _, _ := newEnrollmentFixture()

	err := svc.Unregister(context.Background(), "c1", "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceUpdateRegistration(t *testing.T) {
	svc, forms, _, _ := newEnrollmentFixture()

	_, err := svc.Register(context.Background(), "c1", "u1", RegisterRequest{Fields: validFields()})
	require.NoError(t, err)

	updated := validFields()
	updated[0].PhoneNumber = "+48987654321"
	form, err := svc.UpdateRegistration(context.Background(), "c1", "u1", RegisterRequest{Fields: updated})
	require.NoError(t, err)
	assert.Equal(t, "+48987654321", form.Fields[0].PhoneNumber)
	assert.Equal(t, "+48987654321", forms.forms[registrationKey{"c1", "u1"}].Fields[0].PhoneNumber)
}

func TestEnrollmentServiceEnrollInstructor(t *testing.T) {
	svc, _, courses, users := newEnrollmentFixture()
	users.users["i1"] = &models.User{ID: "i1", Role: models.RoleInstructor, Qualifications: "PZŻ Sailing Instructor"}
	users.users["i2"] = &models.User{ID: "i2", Role: models.RoleInstructor, Qualifications: "Instructor Lecturer of the Polish Sailing Association"}
	courses.instructors["i1"] = *users.users["i1"]
	courses.instructors["i2"] = *users.users["i2"]
	courses.courses["c1"].Instructors = []string{"i1"}

	roster, err := svc.EnrollInstructor(context.Background(), &models.Principal{ID: "i2", Role: models.RoleInstructor}, "c1", false)
	require.NoError(t, err)
	// The lecturer outranks the sailing instructor already on the roster.
	assert.Equal(t, []string{"i2", "i1"}, roster)
}

func TestEnrollmentServiceEnrollInstructorIdempotent(t *testing.T) {
	svc, _, courses, users := newEnrollmentFixture()
	users.users["i1"] = &models.User{ID: "i1", Role: models.RoleInstructor}
	courses.instructors["i1"] = *users.users["i1"]

	principal := &models.Principal{ID: "i1", Role: models.RoleInstructor}
	first, err := svc.EnrollInstructor(context.Background(), principal, "c1", false)
	require.NoError(t, err)
	second, err := svc.EnrollInstructor(context.Background(), principal, "c1", false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, second, 1)
}

func TestEnrollmentServiceEnrollInstructorRequiresRole(t *testing.T) {
	svc, _, _, _ := newEnrollmentFixture()

	_, err := svc.EnrollInstructor(context.Background(), &models.Principal{ID: "u1", Role: models.RoleStudent}, "c1", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollInstructorNilPrincipal(t *testing.T) {
	svc, _, _, _ := newEnrollmentFixture()

	_, err := svc.EnrollInstructor(context.Background(), nil, "c1", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollInstructorHalfDayGate(t *testing.T) {
	svc, _, courses, users := newEnrollmentFixture()
	users.users["i1"] = &models.User{ID: "i1", Role: models.RoleInstructor}
	courses.instructors["i1"] = *users.users["i1"]
	principal := &models.Principal{ID: "i1", Role: models.RoleInstructor}

	_, err := svc.EnrollInstructor(context.Background(), principal, "c1", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	roster, err := svc.EnrollInstructor(context.Background(), principal, "c2", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"i1"}, roster)
}

func TestEnrollmentServiceInstructorRoster(t *testing.T) {
	svc, _, courses, users := newEnrollmentFixture()
	users.users["i1"] = &models.User{ID: "i1", Username: "junior", Role: models.RoleInstructor}
	users.users["i2"] = &models.User{ID: "i2", Username: "senior", Role: models.RoleInstructor}
	courses.courses["c1"].Instructors = []string{"i2", "i1"}

	roster, err := svc.InstructorRoster(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	// Roster order is preserved, not lookup order.
	assert.Equal(t, "i2", roster[0].ID)
	assert.Equal(t, "i1", roster[1].ID)
}

func TestEnrollmentServiceInstructorRosterEmpty(t *testing.T) {
	svc, _, _, _ := newEnrollmentFixture()

	roster, err := svc.InstructorRoster(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, roster)
}

func TestEnrollmentServiceEnrollInstructorUnknownCourse(t *testing.T) {
	svc, _, _, _ := newEnrollmentFixture()

	_, err := svc.EnrollInstructor(context.Background(), &models.Principal{ID: "i1", Role: models.RoleInstructor}, "missing", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
