package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/azs-pg/ilawa-courses-api/internal/models"
	appErrors "github.com/azs-pg/ilawa-courses-api/pkg/errors"
)

type registrationReader interface {
	FindByCourseAndUser(ctx context.Context, courseID, userID string) (*models.RegistrationForm, error)
}

// TextExtractor yields plain text from an uploaded document. Document-format
// parsing (e.g. PDF) is an external concern behind this interface.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// PlainTextExtractor treats the uploaded bytes as UTF-8 text.
type PlainTextExtractor struct{}

// Extract implements TextExtractor.
func (PlainTextExtractor) Extract(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("uploaded document is not valid text")
	}
	return string(data), nil
}

type uploadStore interface {
	Save(filename string, data []byte) (string, error)
}

// PaymentService validates uploaded payment confirmations against the
// registration data of the enrollment they are claimed for.
type PaymentService struct {
	users         userReader
	forms         registrationReader
	store         uploadStore
	extractor     TextExtractor
	referenceCode string
	logger        *zap.Logger
}

// NewPaymentService constructs PaymentService. The reference code is the
// club's bank account reference every confirmation must mention.
func NewPaymentService(users userReader, forms registrationReader, store uploadStore, extractor TextExtractor, referenceCode string, logger *zap.Logger) *PaymentService {
	if extractor == nil {
		extractor = PlainTextExtractor{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if referenceCode == "" {
		logger.Warn("payment reference code is not configured, all confirmations will be rejected")
	}
	return &PaymentService{users: users, forms: forms, store: store, extractor: extractor, referenceCode: referenceCode, logger: logger}
}

// ValidateUpload stores the uploaded document, extracts its text and runs
// confirmation matching against the user's registration for the course.
func (s *PaymentService) ValidateUpload(ctx context.Context, courseID, userID, filename string, data []byte) error {
	if len(data) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "no file uploaded")
	}

	if s.store != nil {
		name := fmt.Sprintf("payment-confirmations/%s/%s%s", courseID, userID, path.Ext(filename))
		if _, err := s.store.Save(name, data); err != nil {
			s.logger.Warn("failed to store payment confirmation",
				zap.String("course_id", courseID),
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}

	text, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "could not read uploaded document")
	}

	return s.ValidateConfirmation(ctx, courseID, userID, text)
}

// ValidateConfirmation checks that the extracted document text matches the
// registration: the first field-set's first name, last name, and cost, plus
// the configured reference code, must all appear case-insensitively. A
// single aggregate validation error is returned on any miss; which token was
// absent is deliberately not disclosed.
func (s *PaymentService) ValidateConfirmation(ctx context.Context, courseID, userID, text string) error {
	// An empty reference code would turn the substring check into a no-op,
	// so a missing PAYMENT_REFERENCE_CODE rejects every confirmation.
	if s.referenceCode == "" {
		return appErrors.Clone(appErrors.ErrInternal, "payment reference code is not configured")
	}

	lowered := strings.ToLower(text)

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.IsEnrolledIn(courseID) {
		return appErrors.Clone(appErrors.ErrValidation, "user is not enrolled in the specified course")
	}

	form, err := s.forms.FindByCourseAndUser(ctx, courseID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "no registration form found for the specified course and user")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration form")
	}
	if len(form.Fields) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "registration form has no field sets")
	}

	fields := form.Fields[0]
	tokens := []string{
		strings.ToLower(fields.FirstName),
		strings.ToLower(fields.LastName),
		formatCost(fields.Cost),
		strings.ToLower(s.referenceCode),
	}
	for _, token := range tokens {
		if !strings.Contains(lowered, token) {
			return appErrors.Clone(appErrors.ErrValidation, "invalid payment confirmation file")
		}
	}

	s.logger.Info("payment confirmation accepted",
		zap.String("course_id", courseID),
		zap.String("user_id", userID))
	return nil
}

// formatCost renders the cost the way it appears in documents: no exponent,
// no trailing zeros.
func formatCost(cost float64) string {
	return strconv.FormatFloat(cost, 'f', -1, 64)
}
