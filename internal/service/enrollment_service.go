package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/azs-pg/ilawa-courses-api/internal/models"
	"github.com/azs-pg/ilawa-courses-api/internal/ranking"
	"github.com/azs-pg/ilawa-courses-api/internal/repository"
	appErrors "github.com/azs-pg/ilawa-courses-api/pkg/errors"
)

type registrationRepository interface {
	FindByCourseAndUser(ctx context.Context, courseID, userID string) (*models.RegistrationForm, error)
	Register(ctx context.Context, form *models.RegistrationForm) error
	Unregister(ctx context.Context, courseID, userID string) error
	UpdateFields(ctx context.Context, id string, fields models.FieldSets) error
}

type courseRoster interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	EnrollInstructor(ctx context.Context, courseID, userID string, rank repository.InstructorRanker) ([]string, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// RegisterRequest carries the submitted registration field-sets.
type RegisterRequest struct {
	Fields []models.FieldSet `json:"fields" validate:"required,min=1,dive"`
}

// EnrollmentService keeps a student's enrollment record, the course roster
// and the registration form mutually consistent, and orchestrates instructor
// enrollment with the ranking engine.
type EnrollmentService struct {
	forms     registrationRepository
	courses   courseRoster
	users     userReader
	ranker    *ranking.Engine
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(forms registrationRepository, courses courseRoster, users userReader, ranker *ranking.Engine, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if ranker == nil {
		ranker = ranking.NewEngine(nil, nil)
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{forms: forms, courses: courses, users: users, ranker: ranker, validator: validate, logger: logger}
}

// Register enrolls a user into a course: it creates the registration form
// and adds both roster entries in one transaction. A second registration for
// the same pair fails with a conflict and leaves state unchanged.
func (s *EnrollmentService) Register(ctx context.Context, courseID, userID string, req RegisterRequest) (*models.RegistrationForm, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if _, err := s.forms.FindByCourseAndUser(ctx, courseID, userID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user is already registered for this course")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
	}

	form := &models.RegistrationForm{CourseID: courseID, UserID: userID, Fields: req.Fields}
	if err := s.forms.Register(ctx, form); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "user is already registered for this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register for course")
	}

	s.logger.Info("student registered",
		zap.String("course_id", courseID),
		zap.String("user_id", userID),
		zap.String("form_id", form.ID))
	return form, nil
}

// Unregister removes the enrollment for the pair: the form is deleted and
// both roster entries are removed in one transaction.
func (s *EnrollmentService) Unregister(ctx context.Context, courseID, userID string) error {
	if err := s.forms.Unregister(ctx, courseID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "registration form not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unregister from course")
	}

	s.logger.Info("student unregistered",
		zap.String("course_id", courseID),
		zap.String("user_id", userID))
	return nil
}

// UpdateRegistration replaces the field-sets of an existing form without
// touching the rosters.
func (s *EnrollmentService) UpdateRegistration(ctx context.Context, courseID, userID string, req RegisterRequest) (*models.RegistrationForm, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	form, err := s.forms.FindByCourseAndUser(ctx, courseID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration form not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration form")
	}

	if err := s.forms.UpdateFields(ctx, form.ID, req.Fields); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update registration form")
	}
	form.Fields = req.Fields
	return form, nil
}

// InstructorRoster returns the course's instructors as full records, in
// roster order.
func (s *EnrollmentService) InstructorRoster(ctx context.Context, courseID string) ([]models.User, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if len(course.Instructors) == 0 {
		return []models.User{}, nil
	}

	members, err := s.users.FindByIDs(ctx, course.Instructors)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructors")
	}
	byID := make(map[string]models.User, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}
	roster := make([]models.User, 0, len(course.Instructors))
	for _, id := range course.Instructors {
		if m, ok := byID[id]; ok {
			roster = append(roster, m)
		}
	}
	return roster, nil
}

// EnrollInstructor adds the principal to the course's instructor roster and
// re-ranks it. When halfDay is set the course must span two days (the
// instructor covers only the first). Enrolling twice is a no-op: the roster
// keeps one occurrence, still correctly ranked. Returns the new ordered
// roster of user ids.
func (s *EnrollmentService) EnrollInstructor(ctx context.Context, principal *models.Principal, courseID string, halfDay bool) ([]string, error) {
	if principal == nil {
		return nil, appErrors.ErrUnauthorized
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if principal.Role != models.RoleInstructor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only instructors can enroll in courses")
	}

	if halfDay && course.DurationDays != 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "this course is not a 2-day course")
	}

	roster, err := s.courses.EnrollInstructor(ctx, courseID, principal.ID, s.ranker.Rank)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll instructor")
	}

	s.logger.Info("instructor enrolled",
		zap.String("course_id", courseID),
		zap.String("user_id", principal.ID),
		zap.Bool("half_day", halfDay),
		zap.Int("roster_size", len(roster)))
	return roster, nil
}
