package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/azs-pg/ilawa-courses-api/internal/models"
)

const courseColumns = `id, name, description, cost, dates, duration_days,
enrolled_students, instructors, registration_template, created_at, updated_at`

// InstructorRanker orders a snapshot of instructor records most senior
// first. It must be pure: no I/O, no mutation of its input.
type InstructorRanker func([]models.User) []models.User

// CourseRepository handles persistence of courses and their rosters.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1 LIMIT 1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	return &course, nil
}

// List returns courses filtered by the provided criteria.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	baseQuery := `FROM courses WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(description) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":       true,
		"cost":       true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		courseColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + baseQuery
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// Create persists a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	if course.EnrolledStudents == nil {
		course.EnrolledStudents = pq.StringArray{}
	}
	if course.Instructors == nil {
		course.Instructors = pq.StringArray{}
	}
	const query = `INSERT INTO courses (id, name, description, cost, dates, duration_days,
enrolled_students, instructors, registration_template, created_at, updated_at)
VALUES (:id, :name, :description, :cost, :dates, :duration_days,
:enrolled_students, :instructors, :registration_template, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update replaces the descriptive fields of a course. Roster columns are
// only touched by the enrollment paths.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, description = :description, cost = :cost,
dates = :dates, duration_days = :duration_days, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a course by its ID.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetTemplate stores the registration form template for a course.
func (r *CourseRepository) SetTemplate(ctx context.Context, id string, template models.FormTemplate) error {
	const query = `UPDATE courses SET registration_template = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, template, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set course template: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set course template: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// EnrollInstructor adds the user to the course's instructor roster and
// rewrites the roster in rank order.
//
// The whole read-modify-write runs in one transaction with the course row
// locked, so concurrent enrollments on the same course serialize while other
// courses stay uncontended. Adding an id that is already on the roster is a
// no-op apart from the re-rank. Returns the new ordered roster.
func (r *CourseRepository) EnrollInstructor(ctx context.Context, courseID, userID string, rank InstructorRanker) (ids []string, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin instructor enrollment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current pq.StringArray
	const lockQuery = `SELECT instructors FROM courses WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, lockQuery, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock course roster: %w", err)
	}

	members := []string(current)
	present := false
	for _, id := range members {
		if id == userID {
			present = true
			break
		}
	}
	if !present {
		members = append(members, userID)
	}

	// Rank attributes are looked up fresh on every enrollment; no cached
	// rank is stored anywhere.
	var instructors []models.User
	membersQuery := fmt.Sprintf(`SELECT %s FROM users WHERE id = ANY($1)`, userColumns)
	if err = tx.SelectContext(ctx, &instructors, membersQuery, pq.Array(members)); err != nil {
		return nil, fmt.Errorf("load course instructors: %w", err)
	}

	ordered := rank(instructors)
	ids = make([]string, len(ordered))
	for i := range ordered {
		ids[i] = ordered[i].ID
	}

	const updateQuery = `UPDATE courses SET instructors = $2, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, courseID, pq.Array(ids), time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("update course roster: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit instructor enrollment: %w", err)
	}
	return ids, nil
}
