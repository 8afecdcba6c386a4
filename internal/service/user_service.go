package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/azs-pg/ilawa-courses-api/internal/models"
	appErrors "github.com/azs-pg/ilawa-courses-api/pkg/errors"
)

type profileRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

type registrationLister interface {
	FindByCourseAndUser(ctx context.Context, courseID, userID string) (*models.RegistrationForm, error)
	ListByUser(ctx context.Context, userID string) ([]models.RegistrationForm, error)
}

type summaryExporter interface {
	RegistrationSummary(course *models.Course, form *models.RegistrationForm) ([]byte, error)
}

// UpdateProfileRequest describes profile update payloads.
type UpdateProfileRequest struct {
	Username            string `json:"username" validate:"required"`
	Email               string `json:"email" validate:"required,email"`
	Qualifications      string `json:"qualifications"`
	SailingRank         string `json:"sailing_rank"`
	CoursesInIlawa      int    `json:"courses_in_ilawa" validate:"gte=0"`
	CoursesOutsideIlawa int    `json:"courses_outside_ilawa" validate:"gte=0"`
}

// UserService serves profile and registration form lookups.
type UserService struct {
	users     profileRepository
	forms     registrationLister
	courses   courseRoster
	exporter  summaryExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(users profileRepository, forms registrationLister, courses courseRoster, exporter summaryExporter, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, forms: forms, courses: courses, exporter: exporter, validator: validate, logger: logger}
}

// List returns users filtered by role or search text, with pagination
// metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Profile returns a user by id.
func (s *UserService) Profile(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// UpdateProfile updates the caller's profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	user, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Username = req.Username
	user.Email = req.Email
	user.Qualifications = req.Qualifications
	user.SailingRank = req.SailingRank
	user.CoursesInIlawa = req.CoursesInIlawa
	user.CoursesOutsideIlawa = req.CoursesOutsideIlawa

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return user, nil
}

// RegistrationForms returns all forms submitted by the user.
func (s *UserService) RegistrationForms(ctx context.Context, userID string) ([]models.RegistrationForm, error) {
	forms, err := s.forms.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registration forms")
	}
	return forms, nil
}

// RegistrationSummaryPDF renders the user's registration form for a course
// as a PDF document.
func (s *UserService) RegistrationSummaryPDF(ctx context.Context, courseID, userID string) ([]byte, error) {
	form, err := s.forms.FindByCourseAndUser(ctx, courseID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration form not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration form")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	data, err := s.exporter.RegistrationSummary(course, form)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render registration summary")
	}
	return data, nil
}
