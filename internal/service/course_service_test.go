package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/azs-pg/ilawa-courses-api/internal/models"
	appErrors "github.com/azs-pg/ilawa-courses-api/pkg/errors"
)

type mockCourseRepo struct {
	items      map[string]*models.Course
	listCalls  int
	listResult []models.Course
	listTotal  int
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := m.items[id]; ok {
		cp := *course
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	m.listCalls++
	return m.listResult, m.listTotal, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.items == nil {
		m.items = make(map[string]*models.Course)
	}
	if course.ID == "" {
		course.ID = "generated"
	}
	cp := *course
	m.items[course.ID] = &cp
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	if _, ok := m.items[course.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *course
	m.items[course.ID] = &cp
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func (m *mockCourseRepo) SetTemplate(ctx context.Context, id string, template models.FormTemplate) error {
	course, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	course.Template = template
	return nil
}

type mockCache struct {
	entries map[string][]byte
	deletes []string
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *mockCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletes = append(m.deletes, pattern)
	m.entries = nil
	return nil
}

func validCourseRequest() CourseRequest {
	return CourseRequest{
		Name:         "Basic Sailing",
		Description:  "Intro course on Lake Jeziorak",
		Cost:         150,
		Dates:        []time.Time{time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)},
		DurationDays: 1,
	}
}

func TestCourseServiceListCachesResult(t *testing.T) {
	repo := &mockCourseRepo{
		listResult: []models.Course{{ID: "c1", Name: "Basic Sailing"}},
		listTotal:  1,
	}
	cache := &mockCache{}
	svc := NewCourseService(repo, cache, time.Minute, validator.New(), zap.NewNop())

	courses, pagination, err := svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, 1, pagination.TotalCount)

	_, _, err = svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
}

func TestCourseServiceCreateInvalidatesCache(t *testing.T) {
	repo := &mockCourseRepo{}
	cache := &mockCache{}
	svc := NewCourseService(repo, cache, time.Minute, validator.New(), zap.NewNop())

	course, err := svc.Create(context.Background(), validCourseRequest())
	require.NoError(t, err)
	assert.Equal(t, "Basic Sailing", course.Name)
	assert.Contains(t, cache.deletes, "courses:list:*")
}

func TestCourseServiceCreateRejectsInvalidPayload(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, nil, time.Minute, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CourseRequest{Name: "missing everything"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceGetNotFound(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, nil, time.Minute, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceUpdate(t *testing.T) {
	repo := &mockCourseRepo{items: map[string]*models.Course{
		"c1": {ID: "c1", Name: "Old", Description: "old", Cost: 100, DurationDays: 1},
	}}
	svc := NewCourseService(repo, nil, time.Minute, validator.New(), zap.NewNop())

	req := validCourseRequest()
	course, err := svc.Update(context.Background(), "c1", req)
	require.NoError(t, err)
	assert.Equal(t, "Basic Sailing", course.Name)
	assert.Equal(t, "Basic Sailing", repo.items["c1"].Name)
}

func TestCourseServiceSetTemplate(t *testing.T) {
	repo := &mockCourseRepo{items: map[string]*models.Course{
		"c1": {ID: "c1", Name: "Basic Sailing"},
	}}
	svc := NewCourseService(repo, nil, time.Minute, validator.New(), zap.NewNop())

	template, err := svc.SetTemplate(context.Background(), "c1", FormTemplateRequest{
		Fields: []models.TemplateField{{FieldName: "t_shirt_size", FieldType: "text"}},
	})
	require.NoError(t, err)
	require.Len(t, template, 1)
	assert.Len(t, repo.items["c1"].Template, 1)
}

func TestCourseServiceDeleteNotFound(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, nil, time.Minute, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
