package models

import (
	"time"

	"github.com/lib/pq"
)

// UserRole represents the available roles for access control.
type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleInstructor UserRole = "instructor"
	RoleStudent    UserRole = "student"
)

// User represents an application user stored in the users table.
// Instructor-specific fields (qualifications, sailing rank, course counts)
// stay empty for students.
type User struct {
	ID                  string         `db:"id" json:"id"`
	Username            string         `db:"username" json:"username"`
	Email               string         `db:"email" json:"email"`
	PasswordHash        string         `db:"password_hash" json:"-"`
	Role                UserRole       `db:"role" json:"role"`
	Qualifications      string         `db:"qualifications" json:"qualifications,omitempty"`
	SailingRank         string         `db:"sailing_rank" json:"sailing_rank,omitempty"`
	CoursesInIlawa      int            `db:"courses_in_ilawa" json:"courses_in_ilawa"`
	CoursesOutsideIlawa int            `db:"courses_outside_ilawa" json:"courses_outside_ilawa"`
	EnrolledCourses     pq.StringArray `db:"enrolled_courses" json:"enrolled_courses"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

// IsEnrolledIn reports whether the user is enrolled in the given course.
func (u *User) IsEnrolledIn(courseID string) bool {
	for _, id := range u.EnrolledCourses {
		if id == courseID {
			return true
		}
	}
	return false
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
