package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/azs-pg/ilawa-courses-api/internal/models"
)

const registrationColumns = `id, course_id, user_id, fields, created_at, updated_at`

// RegistrationRepository handles persistence of registration forms together
// with the redundant roster columns on users and courses.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// FindByCourseAndUser returns the form for the (course, user) pair.
func (r *RegistrationRepository) FindByCourseAndUser(ctx context.Context, courseID, userID string) (*models.RegistrationForm, error) {
	query := fmt.Sprintf(`SELECT %s FROM registration_forms WHERE course_id = $1 AND user_id = $2 LIMIT 1`, registrationColumns)
	var form models.RegistrationForm
	if err := r.db.GetContext(ctx, &form, query, courseID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find registration form: %w", err)
	}
	return &form, nil
}

// ListByUser returns all registration forms submitted by a user.
func (r *RegistrationRepository) ListByUser(ctx context.Context, userID string) ([]models.RegistrationForm, error) {
	query := fmt.Sprintf(`SELECT %s FROM registration_forms WHERE user_id = $1 ORDER BY created_at DESC`, registrationColumns)
	var forms []models.RegistrationForm
	if err := r.db.SelectContext(ctx, &forms, query, userID); err != nil {
		return nil, fmt.Errorf("list registration forms: %w", err)
	}
	return forms, nil
}

// Register creates the registration form and adds the enrollment to both
// roster sets in a single transaction.
//
// The three writes stand or fall together: the form, the course id on the
// user's enrolled_courses, and the user id on the course's enrolled_students.
// The roster updates are guarded so a retried request cannot produce
// duplicate set members, and the unique index on (course_id, user_id) turns
// a concurrent double-register into ErrDuplicate.
func (r *RegistrationRepository) Register(ctx context.Context, form *models.RegistrationForm) (err error) {
	if form.ID == "" {
		form.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if form.CreatedAt.IsZero() {
		form.CreatedAt = now
	}
	form.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO registration_forms (id, course_id, user_id, fields, created_at, updated_at)
VALUES (:id, :course_id, :user_id, :fields, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, form); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicate
			return err
		}
		return fmt.Errorf("create registration form: %w", err)
	}

	const addCourseQuery = `UPDATE users SET enrolled_courses = array_append(enrolled_courses, $2), updated_at = $3
WHERE id = $1 AND NOT ($2 = ANY(enrolled_courses))`
	if _, err = tx.ExecContext(ctx, addCourseQuery, form.UserID, form.CourseID, now); err != nil {
		return fmt.Errorf("add course to user roster: %w", err)
	}

	const addStudentQuery = `UPDATE courses SET enrolled_students = array_append(enrolled_students, $2), updated_at = $3
WHERE id = $1 AND NOT ($2 = ANY(enrolled_students))`
	if _, err = tx.ExecContext(ctx, addStudentQuery, form.CourseID, form.UserID, now); err != nil {
		return fmt.Errorf("add student to course roster: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit registration: %w", err)
	}
	return nil
}

// Unregister deletes the form for the pair and removes the enrollment from
// both roster sets in a single transaction. Returns sql.ErrNoRows when no
// form exists.
func (r *RegistrationRepository) Unregister(ctx context.Context, courseID, userID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unregistration: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `DELETE FROM registration_forms WHERE course_id = $1 AND user_id = $2`, courseID, userID)
	if err != nil {
		return fmt.Errorf("delete registration form: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete registration form: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	now := time.Now().UTC()
	const removeCourseQuery = `UPDATE users SET enrolled_courses = array_remove(enrolled_courses, $2), updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, removeCourseQuery, userID, courseID, now); err != nil {
		return fmt.Errorf("remove course from user roster: %w", err)
	}

	const removeStudentQuery = `UPDATE courses SET enrolled_students = array_remove(enrolled_students, $2), updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, removeStudentQuery, courseID, userID, now); err != nil {
		return fmt.Errorf("remove student from course roster: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit unregistration: %w", err)
	}
	return nil
}

// UpdateFields replaces the field-sets of an existing form. Roster columns
// are not touched.
func (r *RegistrationRepository) UpdateFields(ctx context.Context, id string, fields models.FieldSets) error {
	const query = `UPDATE registration_forms SET fields = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, fields, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update registration form: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update registration form: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
