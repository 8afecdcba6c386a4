package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date. Registration forms submit it as "2006-01-02",
// but full RFC 3339 timestamps are accepted too; it always renders
// date-only.
type Date struct {
	time.Time
}

// NewDate returns the Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		t, err = time.Parse(time.RFC3339, raw)
	}
	if err != nil {
		return fmt.Errorf("parse date %q: %w", raw, err)
	}

	d.Time = t
	return nil
}

// FieldSet carries one participant's submitted registration details.
type FieldSet struct {
	FirstName            string  `json:"first_name" validate:"required"`
	LastName             string  `json:"last_name" validate:"required"`
	Pesel                string  `json:"pesel" validate:"required"`
	PhoneNumber          string  `json:"phone_number" validate:"required"`
	Cost                 float64 `json:"cost" validate:"required"`
	Date                 Date    `json:"date" validate:"required"`
	Email                string  `json:"email" validate:"required,email"`
	StudentIDNumber      string  `json:"student_id_number,omitempty"`
	MembershipCardNumber string  `json:"membership_card_number,omitempty"`
	TShirtSize           string  `json:"t_shirt_size,omitempty"`
	Meals                string  `json:"meals,omitempty"`
	ReferringSource      string  `json:"referring_source,omitempty"`
}

// FieldSets stores the ordered form field-sets as a JSONB column.
type FieldSets []FieldSet

// Value implements driver.Valuer.
func (f FieldSets) Value() (driver.Value, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner.
func (f *FieldSets) Scan(src interface{}) error {
	if src == nil {
		*f = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("scan FieldSets: unexpected type %T", src)
	}
	return json.Unmarshal(raw, f)
}

// RegistrationForm is the per-student record of submitted enrollment details
// for one course. At most one form exists per (course, user) pair and the
// form only exists while the enrollment is active.
type RegistrationForm struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Fields    FieldSets `db:"fields" json:"fields"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
