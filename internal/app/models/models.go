package models

// RoleType defines the user role type
type RoleType string

const (
	RoleStudent         RoleType = "STUDENT"
	RoleAdmin           RoleType = "ADMIN"
	RoleDepartmentAdmin RoleType = "DEPARTMENT_ADMIN"
)

// IsAdmin reports whether the role may moderate content and manage the catalog.
func (r RoleType) IsAdmin() bool {
	return r == RoleAdmin || r == RoleDepartmentAdmin
}

// Semester of an academic session
type Semester string

const (
	SemesterFirst  Semester = "First Semester"
	SemesterSecond Semester = "Second Semester"
)

func (s Semester) Valid() bool {
	return s == SemesterFirst || s == SemesterSecond
}

// Levels accepted by the catalog
var Levels = []int{100, 200, 300, 400, 500}

// ValidLevel reports whether level is one of Levels.
func ValidLevel(level int) bool {
	for _, l := range Levels {
		if l == level {
			return true
		}
	}
	return false
}
