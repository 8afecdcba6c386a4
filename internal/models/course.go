package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// DateList stores course session dates as a JSONB column.
type DateList []time.Time

// Value implements driver.Valuer.
func (d DateList) Value() (driver.Value, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *DateList) Scan(src interface{}) error {
	if src == nil {
		*d = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("scan DateList: unexpected type %T", src)
	}
	return json.Unmarshal(raw, d)
}

// TemplateField describes one custom field requested on a course's
// registration form.
type TemplateField struct {
	FieldName  string `json:"field_name" validate:"required"`
	FieldType  string `json:"field_type" validate:"required,oneof=text number date email"`
	IsRequired bool   `json:"is_required"`
}

// FormTemplate stores the optional per-course registration form template as
// a JSONB column.
type FormTemplate []TemplateField

// Value implements driver.Valuer.
func (t FormTemplate) Value() (driver.Value, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner.
func (t *FormTemplate) Scan(src interface{}) error {
	if src == nil {
		*t = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("scan FormTemplate: unexpected type %T", src)
	}
	return json.Unmarshal(raw, t)
}

// Course represents a sailing training course.
//
// EnrolledStudents is a set of user ids kept consistent with each student's
// enrolled_courses list and the registration_forms table. Instructors is an
// ordered sequence: position encodes seniority, most senior first.
type Course struct {
	ID               string         `db:"id" json:"id"`
	Name             string         `db:"name" json:"name"`
	Description      string         `db:"description" json:"description"`
	Cost             float64        `db:"cost" json:"cost"`
	Dates            DateList       `db:"dates" json:"dates"`
	DurationDays     int            `db:"duration_days" json:"duration_days"`
	EnrolledStudents pq.StringArray `db:"enrolled_students" json:"enrolled_students"`
	Instructors      pq.StringArray `db:"instructors" json:"instructors"`
	Template         FormTemplate   `db:"registration_template" json:"registration_template,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// HasInstructor reports whether the user already appears on the instructor
// roster.
func (c *Course) HasInstructor(userID string) bool {
	for _, id := range c.Instructors {
		if id == userID {
			return true
		}
	}
	return false
}

// CourseFilter defines filter criteria for listing courses.
type CourseFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
